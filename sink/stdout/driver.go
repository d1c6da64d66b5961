// seqx/sink/stdout/driver.go
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"seqx/frame"
	"seqx/sink"
)

/* ────────── public config ────────── */
type Config struct {
	DelayMS       int       `yaml:"delay_ms"`        // artificial per-frame delay
	PrintCounter  bool      `yaml:"print_counter"`   // prepend seq#
	BatchSize     int       `yaml:"ack_batch_size"`  // 0 = ack every frame
	FlushMS       int       `yaml:"ack_flush_ms"`    // 0 = disabled
	PrintValue    bool      `yaml:"print_value"`     // print the JSON payload
	ValueMaxBytes int       `yaml:"value_max_bytes"` // 0 = no truncation
	Out           io.Writer `yaml:"-"`               // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	ack sink.EmitFn
	seq uint64

	mu      sync.Mutex // guards out+pending+timer
	pending []frame.Checkpoint
	timer   *time.Timer // nil → no timer armed
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(f *frame.Frame) error {
	if d.cfg.DelayMS > 0 {
		time.Sleep(time.Duration(d.cfg.DelayMS) * time.Millisecond)
	}

	line := f.Checkpoint.String()
	if d.cfg.PrintCounter {
		line = fmt.Sprintf("[sink %06d] %s", atomic.AddUint64(&d.seq, 1), line)
	} else {
		line = "[sink] " + line
	}
	if d.cfg.PrintValue {
		v := f.Value
		if n := d.cfg.ValueMaxBytes; n > 0 && len(v) > n {
			v = append(v[:n:n], "..."...)
		}
		line += " " + string(v)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintln(d.cfg.Out, line); err != nil {
		return err
	}
	if d.ack == nil {
		return nil
	}
	d.pending = append(d.pending, f.Checkpoint)

	/* 1. flush on batch size */
	if d.cfg.BatchSize <= 1 || len(d.pending) >= d.cfg.BatchSize {
		d.flushLocked()
		return nil
	}

	/* 2. arm the one-shot timer if needed */
	if d.cfg.FlushMS > 0 && d.timer == nil {
		d.timer = time.AfterFunc(
			time.Duration(d.cfg.FlushMS)*time.Millisecond,
			d.timerFlush,
		)
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	d.flushLocked()
	d.mu.Unlock()
	return nil
}

/* ────────── sink.AckAware ────────── */
func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

/* ────────── internals ────────── */

// called by the background timer goroutine
func (d *driver) timerFlush() {
	d.mu.Lock()
	d.flushLocked()
	d.mu.Unlock()
}

// must be called with d.mu *held*
func (d *driver) flushLocked() {
	d.stopTimerLocked() // re-arm on next Push if needed
	if len(d.pending) == 0 || d.ack == nil {
		return
	}
	for _, cp := range d.pending {
		d.ack(cp)
	}
	d.pending = d.pending[:0]
}

func (d *driver) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
