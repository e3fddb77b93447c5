// Package config declares the core's YAML-loaded configuration surface:
// executor turn budget, telemetry exporter/redaction, and runtime resource
// limits. It owns no business logic, just shape plus a loader.
package config

// Config is the top-level configuration for an agentcore runtime process.
type Config struct {
	Executor  ExecutorConfig  `yaml:"executor"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Cluster   ClusterConfig   `yaml:"cluster"`
}

// ExecutorConfig bounds a single ReAct execution.
type ExecutorConfig struct {
	// MaxTurns caps model round-trips before MaxTurnsExceeded. Defaults to
	// 10 when the key is omitted; an explicit 0 is kept as 0.
	MaxTurns int `yaml:"max_turns"`
}

// TelemetryConfig controls the telemetry mapper's exporter and redaction
// policy.
type TelemetryConfig struct {
	ServiceName              string          `yaml:"service_name"`
	RuntimeID                string          `yaml:"runtime_id"`
	Exporter                 ExporterConfig  `yaml:"exporter"`
	MetricsEnabled           bool            `yaml:"metrics_enabled"`
	InstallTracingSubscriber bool            `yaml:"install_tracing_subscriber"`
	Redaction                RedactionConfig `yaml:"redaction"`
}

// ExporterConfig names the optional OTLP collector endpoint for trace export.
type ExporterConfig struct {
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig configures the OTLP gRPC exporter. Endpoint empty disables export.
type OTLPConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// RedactionConfig toggles field redaction per event category.
type RedactionConfig struct {
	RedactTaskInputs    bool `yaml:"redact_task_inputs"`
	RedactTaskOutputs   bool `yaml:"redact_task_outputs"`
	RedactToolArguments bool `yaml:"redact_tool_arguments"`
	RedactToolResults   bool `yaml:"redact_tool_results"`
}

// RuntimeConfig bounds the actor runtime's internal resources.
type RuntimeConfig struct {
	// EventChannelCapacity bounds the merged event channel. Defaults to
	// runtime.DefaultEventChannelCapacity (1000) when zero.
	EventChannelCapacity int `yaml:"event_channel_capacity"`

	// StatsEnabled turns on the Runtime's in-process Stats() counter tap,
	// independent of the OTel/Prometheus telemetry.Mapper path.
	StatsEnabled bool `yaml:"stats_enabled"`
}

// ClusterConfig configures the optional distributed mode.
type ClusterConfig struct {
	// Enabled turns on cluster mode. When false, Host/Role are ignored and
	// the runtime operates standalone.
	Enabled bool `yaml:"enabled"`

	// Role is "host" or "client".
	Role string `yaml:"role"`

	// ListenAddr is the host's gRPC bind address (host role only).
	ListenAddr string `yaml:"listen_addr"`

	// HostAddr is the client's upstream host address (client role only).
	HostAddr string `yaml:"host_addr"`

	// ClientID identifies this process to the host when acting as a client.
	ClientID string `yaml:"client_id"`

	// AuthSecret signs/verifies the JWT clients present on connect.
	AuthSecret string `yaml:"auth_secret"`
}

// Default returns a Config populated with every documented default.
func Default() Config {
	return Config{
		Executor: ExecutorConfig{MaxTurns: 10},
		Telemetry: TelemetryConfig{
			ServiceName:    "agentcore-runtime",
			MetricsEnabled: true,
		},
	}
}
