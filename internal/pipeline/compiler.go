package pipeline

import (
	"fmt"
	"time"

	"seqx/internal/config"
	"seqx/internal/spec"
	"seqx/internal/transform"
	"seqx/sink"
	kafkasink "seqx/sink/kafka"
	"seqx/sink/stdout"
	"seqx/source"
	"seqx/source/file"
	"seqx/source/kafka"
)

func Compile(path string) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, r); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, r *Runner) error {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	r.SetSource(src)

	if aw, ok := src.(source.AckAware); ok {
		r.SubscribeAck(aw.OnAck)
	}

	for _, t := range cfg.Transformers {
		opts := StageOptions{
			Timeout:   time.Duration(t.TimeoutMS) * time.Millisecond,
			Attempts:  t.RetryPolicy.Attempts,
			Backoff:   time.Duration(t.RetryPolicy.BackoffMS) * time.Millisecond,
			Explode:   t.Explode,
			DropEmpty: t.DropEmpty,
		}
		switch t.Type {
		case "", "inproc":
			if _, err := transform.Lookup(t.Op); err != nil {
				return fmt.Errorf("transform %s: %w", t.Name, err)
			}
			r.AddTransformer(t.Name, t.Op, transform.NewInProcessClient(), opts)
		case "grpc":
			cli, err := transform.NewGRPCClient(t.Address)
			if err != nil {
				return fmt.Errorf("transform %s: dial %s: %w", t.Name, t.Address, err)
			}
			r.AddTransformer(t.Name, t.Op, cli, opts)
		default:
			return fmt.Errorf("unsupported transformer type %q for %s", t.Type, t.Name)
		}
	}

	if len(cfg.Sinks) == 0 {
		return fmt.Errorf("pipeline %s: no sinks", path)
	}
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{
				DelayMS:       cfg.Debug.PerFrameDelayMS,
				PrintCounter:  cfg.Debug.PrintCounter,
				BatchSize:     cfg.Debug.AckBatchSize,
				FlushMS:       cfg.Debug.AckFlushMS,
				PrintValue:    cfg.Debug.PrintValue,
				ValueMaxBytes: cfg.Debug.ValueMaxBytes,
			})
		case "kafka":
			err = sDrv.Configure(kafkasink.Config(cfg.SinkConfigs.Kafka))
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return err
		}

		if ackAware, ok := sDrv.(sink.AckAware); ok {
			ackAware.BindAck(r.Ack)
		}
		r.AddSink(sDrv)
	}
	return nil
}

func buildSource(cfg spec.File) (source.Adapter, error) {
	switch cfg.Source.Kind {
	case "kafka":
		kc, err := config.LoadKafkaSource(cfg)
		if err != nil {
			return nil, err
		}
		src, err := kafka.NewAdapter(cfg.Source.Driver)
		if err != nil {
			return nil, err
		}
		if err = src.Configure(kc); err != nil {
			return nil, err
		}
		return src, nil
	case "file":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("file source: path is required")
		}
		return file.New(cfg.Source.Path), nil
	}
	return nil, fmt.Errorf("unsupported source %q", cfg.Source.Kind)
}
