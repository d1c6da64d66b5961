package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"seqx/frame"
	"seqx/internal/logging"
	"seqx/internal/telemetry"
	"seqx/internal/transform"
	"seqx/sink"
	"seqx/source"
)

// StageOptions tune one transform stage.
type StageOptions struct {
	Timeout  time.Duration // per attempt, 0 = none
	Attempts int           // retries after the first failure
	Backoff  time.Duration // pause between attempts
	// Explode turns a list result into one frame per element.
	Explode bool
	// DropEmpty drops frames whose result is an empty list.
	DropEmpty bool
}

type stage struct {
	name string
	op   string
	cli  transform.Client
	opts StageOptions
}

type Runner struct {
	source source.Adapter
	stages []stage
	sinks  []sink.Adapter

	mu   sync.Mutex
	subs []frame.AckFunc
	// outstanding counts the sink acks still owed per source checkpoint.
	outstanding map[frame.Checkpoint]int
}

func NewRunner() *Runner {
	return &Runner{outstanding: make(map[frame.Checkpoint]int)}
}

func (r *Runner) AddSink(s sink.Adapter)     { r.sinks = append(r.sinks, s) }
func (r *Runner) SetSource(s source.Adapter) { r.source = s }

// AddTransformer appends a stage applying op through cli.
func (r *Runner) AddTransformer(name, op string, cli transform.Client, opts StageOptions) {
	r.stages = append(r.stages, stage{name: name, op: op, cli: cli, opts: opts})
}

func (r *Runner) SubscribeAck(fn frame.AckFunc) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Ack records one sink ack for cp. Subscribers are told once every frame
// derived from cp has been acked by every sink. Checkpoints the runner is
// not tracking are forwarded as is.
func (r *Runner) Ack(cp frame.Checkpoint) {
	r.mu.Lock()
	if n, ok := r.outstanding[cp]; ok {
		if n > 1 {
			r.outstanding[cp] = n - 1
			r.mu.Unlock()
			return
		}
		delete(r.outstanding, cp)
	}
	handlers := append([]frame.AckFunc{}, r.subs...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(cp)
	}
}

/*──────── frame routing ───────*/

func (r *Runner) pushFrame(ctx context.Context, f *frame.Frame) error {
	frames := []*frame.Frame{f}
	for _, st := range r.stages {
		var next []*frame.Frame
		for _, in := range frames {
			out, err := st.run(ctx, in)
			if err != nil {
				telemetry.CountFrames(st.name, telemetry.OutcomeFailed, 1)
				return fmt.Errorf("stage %s: %w", st.name, err)
			}
			next = append(next, out...)
		}
		if len(next) == 0 {
			telemetry.CountFrames(st.name, telemetry.OutcomeDropped, len(frames))
			r.Ack(f.Checkpoint)
			return nil
		}
		telemetry.CountFrames(st.name, telemetry.OutcomeForwarded, len(next))
		frames = next
	}

	if want := len(frames) * r.ackingSinks(); want > 0 {
		r.expect(f.Checkpoint, want)
	}
	for _, s := range r.sinks {
		for _, out := range frames {
			if err := s.Push(out); err != nil {
				r.forget(f.Checkpoint)
				return err
			}
		}
	}
	return nil
}

// expect registers n acks owed for cp. It runs before the first Push since
// a sink may ack synchronously.
func (r *Runner) expect(cp frame.Checkpoint, n int) {
	r.mu.Lock()
	r.outstanding[cp] += n
	r.mu.Unlock()
}

func (r *Runner) ackingSinks() int {
	n := 0
	for _, s := range r.sinks {
		if _, ok := s.(sink.AckAware); ok {
			n++
		}
	}
	return n
}

func (r *Runner) forget(cp frame.Checkpoint) {
	r.mu.Lock()
	delete(r.outstanding, cp)
	r.mu.Unlock()
}

func (st stage) run(ctx context.Context, in *frame.Frame) ([]*frame.Frame, error) {
	out, err := st.apply(ctx, in.Value)
	if err != nil {
		return nil, err
	}
	if st.opts.DropEmpty && isEmptyList(out) {
		return nil, nil
	}
	if !st.opts.Explode {
		return []*frame.Frame{in.Derive(out)}, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(out, &elems); err != nil {
		return nil, fmt.Errorf("explode: result of %s is not a list: %w", st.op, err)
	}
	frames := make([]*frame.Frame, 0, len(elems))
	for _, e := range elems {
		frames = append(frames, in.Derive(e))
	}
	return frames, nil
}

// apply calls the client, retrying transient failures.
func (st stage) apply(ctx context.Context, payload []byte) ([]byte, error) {
	var err error
	for attempt := 0; attempt <= st.opts.Attempts; attempt++ {
		if attempt > 0 && st.opts.Backoff > 0 {
			select {
			case <-time.After(st.opts.Backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		var out []byte
		out, err = st.call(ctx, payload)
		if err == nil {
			return out, nil
		}
		if permanent(err) || ctx.Err() != nil {
			return nil, err
		}
		logging.Component("runner").Warn("transform attempt failed", "stage", st.name, "attempt", attempt+1, "err", err)
	}
	return nil, err
}

func (st stage) call(ctx context.Context, payload []byte) ([]byte, error) {
	if st.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.opts.Timeout)
		defer cancel()
	}
	return st.cli.Apply(ctx, st.op, payload)
}

func permanent(err error) bool {
	return errors.Is(err, transform.ErrBadPayload) || errors.Is(err, transform.ErrUnknownOp)
}

func isEmptyList(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("[]"))
}

// Run feeds the source through the stages until the source stops or ctx
// ends. The source's end-of-input is not an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	err := r.source.Run(ctx, func(f *frame.Frame) error { return r.pushFrame(ctx, f) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the source, the sinks and the stage clients.
func (r *Runner) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	for _, st := range r.stages {
		errs = append(errs, st.cli.Close())
	}
	return errors.Join(errs...)
}
