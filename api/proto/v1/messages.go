// Package pb holds the gRPC surface of the transform service. Requests and
// replies are protobuf well-known types so no generated message code is
// needed:
//
//	Apply:    Struct{"op": string, "payload": JSON text} -> Value(JSON text)
//	Metadata: Empty -> Struct{"name", "version", "ops": [{"name","input","output"}]}
//	Health:   Empty -> Struct{"ok": bool, "details": string}
//
// Apply payloads travel as JSON text rather than structpb numbers, which are
// float64 and cannot hold every int64.
package pb

import (
	"encoding/json"
	"errors"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	FieldOp      = "op"
	FieldPayload = "payload"
)

// NewApplyRequest wraps a JSON payload for the Apply call.
func NewApplyRequest(op string, payload []byte) (*structpb.Struct, error) {
	if !json.Valid(payload) {
		return nil, errors.New("apply: payload is not valid JSON")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldOp:      structpb.NewStringValue(op),
		FieldPayload: structpb.NewStringValue(string(payload)),
	}}, nil
}

// ParseApplyRequest is the inverse of NewApplyRequest.
func ParseApplyRequest(req *structpb.Struct) (string, []byte, error) {
	if req == nil {
		return "", nil, errors.New("apply: empty request")
	}
	opv, ok := req.Fields[FieldOp]
	if !ok {
		return "", nil, errors.New("apply: missing op")
	}
	op, ok := opv.GetKind().(*structpb.Value_StringValue)
	if !ok || op.StringValue == "" {
		return "", nil, errors.New("apply: op must be a non-empty string")
	}
	pv, ok := req.Fields[FieldPayload]
	if !ok {
		return "", nil, errors.New("apply: missing payload")
	}
	payload, err := jsonText(pv)
	if err != nil {
		return "", nil, err
	}
	return op.StringValue, payload, nil
}

// NewApplyReply wraps the JSON result of an Apply call.
func NewApplyReply(result []byte) *structpb.Value {
	return structpb.NewStringValue(string(result))
}

// ParseApplyReply is the inverse of NewApplyReply.
func ParseApplyReply(v *structpb.Value) ([]byte, error) {
	return jsonText(v)
}

func jsonText(v *structpb.Value) ([]byte, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, errors.New("apply: payload must be JSON text")
	}
	b := []byte(s.StringValue)
	if !json.Valid(b) {
		return nil, errors.New("apply: payload is not valid JSON")
	}
	return b, nil
}
