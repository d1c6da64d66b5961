package config

import (
	"fmt"
	"slices"

	"seqx/internal/spec"
	kcfg "seqx/source/kafka"
)

// LoadKafkaSource loads the Kafka source config referenced by a pipeline
// file and checks it against the pipeline's sinks. A Kafka sink producing
// to one of the consumed topics would feed its own output back in, so that
// layout is rejected.
func LoadKafkaSource(f spec.File) (kcfg.Config, error) {
	kc, err := kcfg.LoadConfig(f.Source.Config)
	if err != nil {
		return kc, fmt.Errorf("kafka source config %q: %w", f.Source.Config, err)
	}
	if slices.Contains(f.Sinks, "kafka") && slices.Contains(kc.Topics, f.SinkConfigs.Kafka.Topic) {
		return kc, fmt.Errorf("kafka sink topic %q is also a source topic", f.SinkConfigs.Kafka.Topic)
	}
	return kc, nil
}
