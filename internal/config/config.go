package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full ragfence configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gate      GateConfig      `yaml:"gate"`
	Abuse     AbuseConfig     `yaml:"abuse"`
	Audit     AuditConfig     `yaml:"audit"`
	Answer    AnswerConfig    `yaml:"answer"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"` // HTTP listen address, e.g. ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// GateConfig tunes the query validator.
type GateConfig struct {
	MaxQueryLength int     `yaml:"max_query_length"`
	MinRelevance   float64 `yaml:"min_relevance"`

	// ExtraTopics extends the built-in allowed-topic vocabulary.
	ExtraTopics []string `yaml:"extra_topics"`
	// ExtraRules appends deployment-specific intent rules.
	ExtraRules []RuleConfig `yaml:"extra_rules"`
}

// RuleConfig is one deployment-supplied intent rule.
type RuleConfig struct {
	ID       string `yaml:"id"`
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"` // one of the incident categories
}

// AbuseConfig tunes the per-session abuse monitor.
type AbuseConfig struct {
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	MaxRequestsPerHour   int `yaml:"max_requests_per_hour"`
	BlockThreshold       int `yaml:"block_threshold"`
	IncidentLogCapacity  int `yaml:"incident_log_capacity"`
}

// AuditConfig controls incident event shipping.
type AuditConfig struct {
	QueueSize       int           `yaml:"queue_size"`
	Workers         int           `yaml:"workers"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Sinks           []SinkConfig  `yaml:"sinks"`
}

type SinkConfig struct {
	Type string `yaml:"type"` // file_jsonl | webhook | redis

	// file_jsonl
	Path string `yaml:"path"`

	// webhook
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	// redis
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	Key         string `yaml:"key"`
	MaxEntries  int64  `yaml:"max_entries"`

	Timeout time.Duration `yaml:"timeout"`
}

// AnswerConfig selects the retrieval/generation collaborator.
type AnswerConfig struct {
	Mode     string        `yaml:"mode"` // mock | http
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Gate.MaxQueryLength <= 0 {
		cfg.Gate.MaxQueryLength = 500
	}
	if cfg.Gate.MinRelevance <= 0 {
		cfg.Gate.MinRelevance = 0.3
	}

	if cfg.Abuse.MaxRequestsPerMinute <= 0 {
		cfg.Abuse.MaxRequestsPerMinute = 30
	}
	if cfg.Abuse.MaxRequestsPerHour <= 0 {
		cfg.Abuse.MaxRequestsPerHour = 500
	}
	if cfg.Abuse.BlockThreshold <= 0 {
		cfg.Abuse.BlockThreshold = 5
	}
	if cfg.Abuse.IncidentLogCapacity <= 0 {
		cfg.Abuse.IncidentLogCapacity = 1000
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Audit.ShutdownTimeout <= 0 {
		cfg.Audit.ShutdownTimeout = 2 * time.Second
	}

	if cfg.Answer.Mode == "" {
		cfg.Answer.Mode = "mock"
	}
	if cfg.Answer.Timeout <= 0 {
		cfg.Answer.Timeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
