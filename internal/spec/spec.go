package spec

type KafkaSinkSpec struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	RequiredAcks int16    `yaml:"required_acks"`
	Version      string   `yaml:"version"`
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
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`    // "inproc" or "grpc"
	Address     string `yaml:"address"` // grpc only, e.g. "localhost:50051"
	Init        string `yaml:"init"`    // inproc only, passed to Initialize
	TimeoutMS   int    `yaml:"timeout_ms"`
	RetryPolicy struct {
		Attempts  int `yaml:"attempts"`
		BackoffMS int `yaml:"backoff_ms"`
	} `yaml:"retry_policy"`
}

// OnError selects what the runner does with a record a stage failed on.
type OnError struct {
	Policy     string        `yaml:"policy"` // drop|deadletter|abort
	DeadLetter KafkaSinkSpec `yaml:"dead_letter"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`
		Driver string `yaml:"driver"`
		Config string `yaml:"config"`
	} `yaml:"source"`

	// Ordered list of transformers applied between source and sinks.
	Transformers []TransformerSpec `yaml:"transformers"`

	Sinks       []string     `yaml:"sinks"`
	SinkConfigs sinkConfigs  `yaml:"sink_configs"`
	OnError     OnError      `yaml:"on_error"`
	Debug       debugSection `yaml:"debug"`
}
