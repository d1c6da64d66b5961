// Package frame defines the unit of data that flows from a source, through
// the transform stages, into the sinks.
package frame

import (
	"fmt"
	"time"
)

// Checkpoint identifies the source position a frame was read from. Sinks
// hand it back to the pipeline once the frame is durably processed.
type Checkpoint struct {
	Topic     string
	Partition int32
	Offset    int64
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("%s[%d]@%d", c.Topic, c.Partition, c.Offset)
}

// Frame carries one payload. Value holds the JSON encoded sequence.
type Frame struct {
	Key        []byte
	Value      []byte
	Headers    map[string][]byte
	Ts         time.Time
	Checkpoint Checkpoint
}

// Derive returns a frame with the same key, headers and checkpoint as f
// but carrying value.
func (f *Frame) Derive(value []byte) *Frame {
	out := &Frame{
		Key:        f.Key,
		Value:      value,
		Ts:         f.Ts,
		Checkpoint: f.Checkpoint,
	}
	if len(f.Headers) > 0 {
		out.Headers = make(map[string][]byte, len(f.Headers))
		for k, v := range f.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// EmitFunc hands a frame to the next step of the pipeline.
type EmitFunc func(*Frame) error

// AckFunc reports that the frame at a checkpoint has been processed.
type AckFunc func(Checkpoint)
