package kafka

import (
	"errors"
	"fmt"
	"sync"

	"seqx/frame"
	"seqx/internal/logging"
	"seqx/internal/spec"
	"seqx/sink"

	"github.com/IBM/sarama"
)

type Config = spec.KafkaSinkSpec

var errClosed = errors.New("kafka-sink: closed")

// driver produces each frame to a topic and acks its checkpoint once the
// broker confirms the write. A failed write is reported by the next Push,
// or by Close when no Push follows.
type driver struct {
	cfg Config
	p   sarama.AsyncProducer
	ack sink.EmitFn

	mu      sync.RWMutex
	closed  bool
	errMu   sync.Mutex
	produce error

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	p, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return err
	}
	d.start(cfg, p)
	return nil
}

func producerConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	return sc
}

func (d *driver) start(cfg Config, p sarama.AsyncProducer) {
	d.cfg, d.p = cfg, p
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		for msg := range p.Successes() {
			cp, ok := msg.Metadata.(frame.Checkpoint)
			if ok && d.ack != nil {
				d.ack(cp)
			}
		}
	}()
	go func() {
		defer d.wg.Done()
		for perr := range p.Errors() {
			logging.Component("kafka-sink").Error("produce failed", "topic", cfg.Topic, "err", perr.Err)
			d.errMu.Lock()
			if d.produce == nil {
				d.produce = fmt.Errorf("kafka-sink: produce to %s: %w", cfg.Topic, perr.Err)
			}
			d.errMu.Unlock()
		}
	}()
}

// takeErr returns and clears the first unreported produce failure.
func (d *driver) takeErr() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	err := d.produce
	d.produce = nil
	return err
}

func (d *driver) Push(f *frame.Frame) error {
	if d.p == nil {
		return errors.New("kafka-sink: not configured")
	}
	if err := d.takeErr(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:    d.cfg.Topic,
		Value:    sarama.ByteEncoder(f.Value),
		Metadata: f.Checkpoint,
	}
	if len(f.Key) > 0 {
		msg.Key = sarama.ByteEncoder(f.Key)
	}
	for k, v := range f.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: v})
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errClosed
	}
	d.p.Input() <- msg
	return nil
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func (d *driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.p == nil {
			return
		}
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		err = d.p.Close()
		d.wg.Wait()
		err = errors.Join(err, d.takeErr())
	})
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
