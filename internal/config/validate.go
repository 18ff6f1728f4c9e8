package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if cfg.Gate.MinRelevance < 0 || cfg.Gate.MinRelevance > 1 {
		return fmt.Errorf("gate.min_relevance must be in [0,1], got %v", cfg.Gate.MinRelevance)
	}
	for i, r := range cfg.Gate.ExtraRules {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("gate.extra_rules[%d] missing id", i)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("gate.extra_rules[%d] (%s) has invalid pattern: %w", i, r.ID, err)
		}
	}

	if cfg.Abuse.MaxRequestsPerMinute > cfg.Abuse.MaxRequestsPerHour {
		return fmt.Errorf("abuse.max_requests_per_minute (%d) exceeds abuse.max_requests_per_hour (%d)",
			cfg.Abuse.MaxRequestsPerMinute, cfg.Abuse.MaxRequestsPerHour)
	}

	if err := validateAuditConfig(cfg.Audit); err != nil {
		return err
	}

	if err := validateAnswerConfig(cfg.Answer); err != nil {
		return err
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateAuditConfig(a AuditConfig) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("audit sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("audit sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("audit sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("audit sink %d (webhook) url must be http or https", i)
			}
		case "redis":
			if strings.TrimSpace(s.Addr) == "" {
				return fmt.Errorf("audit sink %d (redis) missing addr", i)
			}
		default:
			return fmt.Errorf("audit sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateAnswerConfig(a AnswerConfig) error {
	switch strings.ToLower(strings.TrimSpace(a.Mode)) {
	case "", "mock":
		return nil
	case "http":
		if strings.TrimSpace(a.Endpoint) == "" {
			return errors.New("answer.mode is http but answer.endpoint is empty")
		}
		u, err := url.Parse(a.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("answer.endpoint is not a valid URL")
		}
		return nil
	default:
		return fmt.Errorf("answer.mode must be mock or http, got %q", a.Mode)
	}
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}
