package spec

type KafkaSinkSpec struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type sinkConfigs struct {
	Kafka KafkaSinkSpec `yaml:"kafka"`
}

type debugSection struct {
	PerFrameDelayMS int  `yaml:"per_frame_delay_ms"`
	PrintCounter    bool `yaml:"print_counter"`
	AckBatchSize    int  `yaml:"ack_batch_size"`
	AckFlushMS      int  `yaml:"ack_flush_ms"`
	PrintValue      bool `yaml:"print_value"`
	ValueMaxBytes   int  `yaml:"value_max_bytes"`
}

type TransformerSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`    // "inproc" or "grpc"
	Op        string `yaml:"op"`      // catalog operation, e.g. "square_all"
	Address   string `yaml:"address"` // grpc only, e.g. "localhost:7070"
	TimeoutMS int    `yaml:"timeout_ms"`
	// Explode emits one frame per element of a list result.
	Explode bool `yaml:"explode"`
	// DropEmpty drops frames whose result is an empty list.
	DropEmpty   bool `yaml:"drop_empty"`
	RetryPolicy struct {
		Attempts  int `yaml:"attempts"`
		BackoffMS int `yaml:"backoff_ms"`
	} `yaml:"retry_policy"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`   // "kafka" or "file"
		Driver string `yaml:"driver"` // kafka only
		Config string `yaml:"config"` // kafka only
		Path   string `yaml:"path"`   // file only, newline-delimited JSON
	} `yaml:"source"`

	// Ordered list of catalog operations applied between source and sinks.
	Transformers []TransformerSpec `yaml:"transformers"`

	Sinks       []string     `yaml:"sinks"`
	SinkConfigs sinkConfigs  `yaml:"sink_configs"`
	Debug       debugSection `yaml:"debug"`
}
