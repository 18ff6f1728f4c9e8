package abuse

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a recorded security incident.
type Category string

const (
	CategoryJailbreakAttempt   Category = "jailbreak_attempt"
	CategoryPromptInjection    Category = "prompt_injection"
	CategoryOffTopicQuery      Category = "off_topic_query"
	CategoryRateLimitExceeded  Category = "rate_limit_exceeded"
	CategorySuspiciousPattern  Category = "suspicious_pattern"
	CategoryCodeInjection      Category = "code_injection_attempt"
	CategoryPersonalInfo       Category = "personal_info_request"
	CategorySystemManipulation Category = "system_manipulation_attempt"
)

// Categories lists every known incident category.
var Categories = []Category{
	CategoryJailbreakAttempt,
	CategoryPromptInjection,
	CategoryOffTopicQuery,
	CategoryRateLimitExceeded,
	CategorySuspiciousPattern,
	CategoryCodeInjection,
	CategoryPersonalInfo,
	CategorySystemManipulation,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Incident is one recorded rejection or rate-limit breach.
// Immutable once created.
type Incident struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Origin    string    `json:"origin"`
	Category  Category  `json:"category"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

func newIncident(sessionID, origin string, category Category, details string, at time.Time) Incident {
	return Incident{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Origin:    origin,
		Category:  category,
		Details:   details,
		Timestamp: at,
	}
}
