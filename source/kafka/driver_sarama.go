package kafka

import (
	"context"
	"errors"
	"sync"

	"seqx/frame"
	"seqx/internal/logging"

	"github.com/IBM/sarama"
)

type SaramaDriver struct {
	cfg   Config
	cl    sarama.Client
	group sarama.ConsumerGroup
	bp    *Controller

	mu      sync.Mutex
	pending map[frame.Checkpoint]func()
}

func (d *SaramaDriver) Configure(config Config) error {
	sc, err := saramaConfig(config)
	if err != nil {
		return err
	}
	d.init(config)

	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.group, err = sarama.NewConsumerGroupFromClient(config.GroupID, d.cl)
	return err
}

func (d *SaramaDriver) init(config Config) {
	d.cfg = config
	d.pending = make(map[frame.Checkpoint]func())
	d.bp = NewController(config.BackPressure.Capacity)
}

func saramaConfig(config Config) (*sarama.Config, error) {
	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return nil, err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = config.Checkpoint.CommitInt
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return sc, sc.Validate()
}

func (d *SaramaDriver) Run(ctx context.Context, emit frame.EmitFunc) error {
	if d.group == nil {
		return errors.New("sarama-driver: not configured")
	}
	handler := &groupHandler{driver: d, emit: emit}

	go func() {
		for err := range d.group.Errors() {
			logging.Component("kafka-source").Warn("consumer group error", "err", err)
		}
	}()

	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	var errs []error
	if d.group != nil {
		errs = append(errs, d.group.Close())
	}
	if d.cl != nil && !d.cl.Closed() {
		errs = append(errs, d.cl.Close())
	}
	return errors.Join(errs...)
}

// OnAck marks cp and returns its in-flight token. It is safe to call from
// any goroutine, including from inside emit. Unknown or already resolved
// checkpoints are ignored, so repeated acks are harmless.
func (d *SaramaDriver) OnAck(cp frame.Checkpoint) {
	d.resolve(cp)
}

func (d *SaramaDriver) resolve(cp frame.Checkpoint) {
	d.mu.Lock()
	cb, ok := d.pending[cp]
	if ok {
		delete(d.pending, cp)
	}
	d.mu.Unlock()
	if ok {
		cb()
		d.bp.Release(1)
		logging.Component("kafka-source").Debug("kafka ack released", "checkpoint", cp.String())
	}
}

type groupHandler struct {
	driver *SaramaDriver
	emit   frame.EmitFunc
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	h.driver.mu.Lock()
	dropped := len(h.driver.pending)
	h.driver.pending = make(map[frame.Checkpoint]func())
	h.driver.mu.Unlock()

	h.driver.bp.Release(dropped)
	if dropped > 0 {
		logging.Component("kafka-source").Info("rebalance cleared pending marks", "count", dropped)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(ctx, sess, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (h *groupHandler) handle(ctx context.Context, sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) error {
	d := h.driver
	cp := frame.Checkpoint{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset}

	if d.cfg.CommitMode == CommitE2E {
		if err := d.bp.Acquire(ctx); err != nil {
			return err
		}
		d.mu.Lock()
		d.pending[cp] = func() { sess.MarkMessage(msg, "") }
		d.mu.Unlock()
	}

	f := &frame.Frame{
		Key:        msg.Key,
		Value:      msg.Value,
		Headers:    toHeaderMap(msg.Headers),
		Ts:         msg.Timestamp,
		Checkpoint: cp,
	}
	if err := h.emit(f); err != nil {
		if d.cfg.CommitMode == CommitE2E {
			d.mu.Lock()
			delete(d.pending, cp)
			d.mu.Unlock()
			d.bp.Release(1)
		}
		return err
	}

	if d.cfg.CommitMode != CommitE2E {
		sess.MarkMessage(msg, "")
	}
	return nil
}

func toHeaderMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}
