package stdout

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"seqx/frame"
	"seqx/sink"

	"github.com/stretchr/testify/require"
)

type ackLog struct {
	mu  sync.Mutex
	cps []frame.Checkpoint
}

func (a *ackLog) ack(cp frame.Checkpoint) {
	a.mu.Lock()
	a.cps = append(a.cps, cp)
	a.mu.Unlock()
}

func (a *ackLog) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cps)
}

func newDriver(t *testing.T, cfg Config) (sink.Adapter, *bytes.Buffer, *ackLog) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Out = &buf
	d, err := sink.NewAdapter("stdout")
	require.NoError(t, err)
	require.NoError(t, d.Configure(cfg))
	acks := &ackLog{}
	d.(sink.AckAware).BindAck(acks.ack)
	return d, &buf, acks
}

func fr(offset int64, value string) *frame.Frame {
	return &frame.Frame{Value: []byte(value), Checkpoint: frame.Checkpoint{Topic: "t", Partition: 0, Offset: offset}}
}

func TestPush_PrintsValueAndAcksEachFrame(t *testing.T) {
	d, buf, acks := newDriver(t, Config{PrintValue: true, PrintCounter: true})

	require.NoError(t, d.Push(fr(1, `[1,4,9]`)))
	require.NoError(t, d.Push(fr(2, `[]`)))

	out := buf.String()
	require.Contains(t, out, "[sink 000001] t[0]@1 [1,4,9]")
	require.Contains(t, out, "[sink 000002] t[0]@2 []")
	require.Equal(t, 2, acks.len())
}

func TestPush_TruncatesValue(t *testing.T) {
	d, buf, _ := newDriver(t, Config{PrintValue: true, ValueMaxBytes: 4})

	require.NoError(t, d.Push(fr(1, `[1,2,3,4,5]`)))

	require.Equal(t, "[sink] t[0]@1 [1,2...\n", buf.String())
}

func TestPush_BatchesAcks(t *testing.T) {
	d, _, acks := newDriver(t, Config{BatchSize: 3})

	require.NoError(t, d.Push(fr(1, `[1]`)))
	require.NoError(t, d.Push(fr(2, `[2]`)))
	require.Equal(t, 0, acks.len())

	require.NoError(t, d.Push(fr(3, `[3]`)))
	require.Equal(t, 3, acks.len())
}

func TestPush_TimerFlush(t *testing.T) {
	d, _, acks := newDriver(t, Config{BatchSize: 100, FlushMS: 10})

	require.NoError(t, d.Push(fr(1, `[1]`)))

	require.Eventually(t, func() bool { return acks.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestClose_FlushesPending(t *testing.T) {
	d, _, acks := newDriver(t, Config{BatchSize: 10})
	require.NoError(t, d.Push(fr(1, `[1]`)))

	require.NoError(t, d.Close())
	require.Equal(t, 1, acks.len())
}

func TestConfigure_WrongType(t *testing.T) {
	d, err := sink.NewAdapter("stdout")
	require.NoError(t, err)
	err = d.Configure(struct{}{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "expected Config"))
}
