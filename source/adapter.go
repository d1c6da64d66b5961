// Package source defines what the pipeline expects from a frame producer.
// Concrete drivers live in sub-packages (kafka, file).
package source

import (
	"context"

	"seqx/frame"
)

type Adapter interface {
	// Run emits frames until ctx ends or the input is exhausted.
	Run(context.Context, frame.EmitFunc) error
	Close() error
}

// AckAware is optional; sources that commit positions only after the
// downstream has processed a frame implement it. The compiler subscribes
// OnAck to the runner when present.
type AckAware interface {
	OnAck(frame.Checkpoint)
}
