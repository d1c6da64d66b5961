package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seqx/frame"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, msg.Offset)
	s.mu.Unlock()
}
func (s *fakeSession) Marked() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func newTestDriver(mode CommitMode, capacity int64) *SaramaDriver {
	d := &SaramaDriver{}
	d.init(Config{CommitMode: mode, BackPressure: BackPressureCfg{Capacity: capacity}})
	return d
}

func message(offset int64, value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "in",
		Partition: 1,
		Offset:    offset,
		Value:     []byte(value),
		Headers:   []*sarama.RecordHeader{{Key: []byte("h"), Value: []byte("v")}},
		Timestamp: time.Unix(1700000000, 0),
	}
}

func TestSaramaDriver_ResolveRunsCallbackOnce(t *testing.T) {
	d := newTestDriver(CommitE2E, 4)
	require.True(t, d.bp.TryAcquire())

	calls := 0
	cp := frame.Checkpoint{Topic: "t", Partition: 2, Offset: 99}
	d.pending[cp] = func() { calls++ }

	d.resolve(cp)
	d.resolve(cp)

	require.Equal(t, 1, calls)
	require.Equal(t, 0, d.bp.InFlight())
}

func TestConsumeClaim_AutoMarksAfterEmit(t *testing.T) {
	d := newTestDriver(CommitAuto, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- message(10, `[1,2]`)
	claim.msgs <- message(11, `[3]`)
	close(claim.msgs)

	var got []*frame.Frame
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error {
		got = append(got, f)
		return nil
	}}

	require.NoError(t, h.ConsumeClaim(sess, claim))
	require.Len(t, got, 2)
	require.Equal(t, `[1,2]`, string(got[0].Value))
	require.Equal(t, frame.Checkpoint{Topic: "in", Partition: 1, Offset: 10}, got[0].Checkpoint)
	require.Equal(t, []byte("v"), got[0].Headers["h"])
	require.Equal(t, []int64{10, 11}, sess.Marked())
}

func TestConsumeClaim_E2EMarksOnAck(t *testing.T) {
	d := newTestDriver(CommitE2E, 4)
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage)}

	emitted := make(chan frame.Checkpoint, 4)
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error {
		emitted <- f.Checkpoint
		return nil
	}}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(sess, claim) }()

	claim.msgs <- message(5, `[1]`)
	cp := <-emitted
	require.Empty(t, sess.Marked(), "e2e must not mark before ack")

	d.OnAck(cp)
	require.Eventually(t, func() bool { return len(sess.Marked()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []int64{5}, sess.Marked())

	cancel()
	require.NoError(t, <-done)
}

func TestConsumeClaim_E2EBlocksAtCapacity(t *testing.T) {
	d := newTestDriver(CommitE2E, 1)
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- message(1, `[1]`)
	claim.msgs <- message(2, `[2]`)

	emitted := make(chan frame.Checkpoint, 4)
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error {
		emitted <- f.Checkpoint
		return nil
	}}
	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(sess, claim) }()

	first := <-emitted
	select {
	case cp := <-emitted:
		t.Fatalf("second frame %v emitted before the first was acked", cp)
	case <-time.After(50 * time.Millisecond):
	}

	d.OnAck(first)
	second := <-emitted
	require.Equal(t, int64(2), second.Offset)

	cancel()
	require.NoError(t, <-done)
}

func TestConsumeClaim_E2EFanoutAcksNeverLeakTokens(t *testing.T) {
	const total = 50
	d := newTestDriver(CommitE2E, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, total)}
	for i := 0; i < total; i++ {
		claim.msgs <- message(int64(i), `[1]`)
	}
	close(claim.msgs)

	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error {
		for i := 0; i < 3; i++ {
			d.OnAck(f.Checkpoint)
		}
		return nil
	}}

	require.NoError(t, h.ConsumeClaim(sess, claim))
	require.Len(t, sess.Marked(), total)
	require.Equal(t, 0, d.bp.InFlight())
	require.Empty(t, d.pending)
}

func TestConsumeClaim_E2EAcksFromOtherGoroutines(t *testing.T) {
	const total = 200
	d := newTestDriver(CommitE2E, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess := &fakeSession{ctx: ctx}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, total)}
	for i := 0; i < total; i++ {
		claim.msgs <- message(int64(i), `[1]`)
	}
	close(claim.msgs)

	var wg sync.WaitGroup
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error {
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func(cp frame.Checkpoint) {
				defer wg.Done()
				d.OnAck(cp)
			}(f.Checkpoint)
		}
		return nil
	}}

	require.NoError(t, h.ConsumeClaim(sess, claim))
	wg.Wait()
	require.Len(t, sess.Marked(), total)
	require.Equal(t, 0, d.bp.InFlight())
}

func TestConsumeClaim_EmitErrorReleasesToken(t *testing.T) {
	d := newTestDriver(CommitE2E, 2)
	sess := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 1)}
	claim.msgs <- message(7, `[1]`)

	boom := errors.New("boom")
	h := &groupHandler{driver: d, emit: func(*frame.Frame) error { return boom }}

	require.ErrorIs(t, h.ConsumeClaim(sess, claim), boom)
	require.Equal(t, 0, d.bp.InFlight())
	require.Empty(t, d.pending)
	require.Empty(t, sess.Marked())
}

func TestCleanup_ClearsPending(t *testing.T) {
	d := newTestDriver(CommitE2E, 4)
	require.True(t, d.bp.TryAcquire())
	d.pending[frame.Checkpoint{Offset: 1}] = func() {}

	require.NoError(t, (&groupHandler{driver: d}).Cleanup(nil))
	require.Empty(t, d.pending)
	require.Equal(t, 0, d.bp.InFlight())
}

func TestSaramaConfig(t *testing.T) {
	cfg := Config{Version: "2.8.0", StartFrom: "oldest", SASLUser: "u", SASLPass: "p"}
	applyDefaults(&cfg)

	sc, err := saramaConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, sarama.OffsetOldest, sc.Consumer.Offsets.Initial)
	require.True(t, sc.Net.SASL.Enable)
	require.Equal(t, 5*time.Second, sc.Consumer.Offsets.AutoCommit.Interval)

	_, err = saramaConfig(Config{Version: "not-a-version"})
	require.Error(t, err)
}

func TestRun_Unconfigured(t *testing.T) {
	require.Error(t, (&SaramaDriver{}).Run(context.Background(), nil))
}
