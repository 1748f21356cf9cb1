package config

// RPC configures the JSON-RPC and event stream listener.
type RPC struct {
	ListenAddress string `toml:"ListenAddress"`
	// JWTSecretEnv names the environment variable holding the HMAC secret
	// used to verify bearer tokens. JWTSecret is only for local networks.
	JWTSecretEnv   string   `toml:"JWTSecretEnv"`
	JWTSecret      string   `toml:"JWTSecret,omitempty"`
	JWTIssuer      string   `toml:"JWTIssuer"`
	RateLimitRPS   float64  `toml:"RateLimitRPS"`
	RateLimitBurst int      `toml:"RateLimitBurst"`
	AllowedOrigins []string `toml:"AllowedOrigins"`
	ReadTimeout    int      `toml:"ReadTimeoutSeconds"`
	WriteTimeout   int      `toml:"WriteTimeoutSeconds"`
}

// Logging mirrors logging.Options.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Indexer configures the relational read model fed from the event bus.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
	// ExportDir receives parquet snapshots of the event log on ExportSchedule,
	// a standard five-field cron expression.
	ExportDir      string `toml:"ExportDir"`
	ExportSchedule string `toml:"ExportSchedule"`
}
