// Package transform exposes the seq operations as a named catalog over JSON
// payloads, and defines the client interface pipeline stages use to invoke
// it, either in-process or over gRPC.
package transform
