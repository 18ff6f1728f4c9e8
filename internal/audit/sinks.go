package audit

import (
	"fmt"
	"os"
	"strings"

	"github.com/ragfence/ragfence/internal/config"
)

// BuildSinks constructs sinks from config. Unknown types are rejected;
// config.Validate catches them earlier, this is the backstop.
func BuildSinks(cfgs []config.SinkConfig) ([]Sink, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	sinks := make([]Sink, 0, len(cfgs))
	for i, sc := range cfgs {
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "file_jsonl":
			s, err := NewFileSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("audit sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := NewWebhookSink(sc.URL, sc.Headers, sc.Timeout)
			if err != nil {
				return nil, fmt.Errorf("audit sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		case "redis":
			password := ""
			if sc.PasswordEnv != "" {
				password = os.Getenv(sc.PasswordEnv)
			}
			s, err := NewRedisSink(sc.Addr, password, sc.Key, sc.MaxEntries, sc.Timeout)
			if err != nil {
				return nil, fmt.Errorf("audit sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("audit sink %d has unknown type %q", i, sc.Type)
		}
	}
	return sinks, nil
}
