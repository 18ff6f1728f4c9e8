// Package responseguard post-filters outgoing answers. It is a coarse
// guard against self-referential AI discourse and prompt leakage, not a
// content classifier.
package responseguard

import (
	"regexp"
	"strings"
)

const (
	// FallbackEmpty replaces empty or whitespace-only answers.
	FallbackEmpty = "I'm sorry, but I could not find a suitable answer in the knowledge base."
	// FallbackMeta replaces answers that drift into talking about the assistant itself.
	FallbackMeta = "Based on the available information in the knowledge base, I can help you with this topic."
	// FallbackLeak replaces answers that leak system vocabulary.
	FallbackLeak = "Based on the available information in the knowledge base, I cannot fully answer this question."
)

var (
	selfReferenceRe = regexp.MustCompile(`(?i)\b(i am|ich bin|as an ai|als ki)\b`)
	systemLeakRe    = regexp.MustCompile(`(?i)\b(prompt|instructions?|anweisung(en)?|system)\b`)
)

// Guard checks an outgoing answer and returns either the (trimmed)
// answer or a fixed replacement.
func Guard(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return FallbackEmpty
	}
	if selfReferenceRe.MatchString(trimmed) {
		return FallbackMeta
	}
	if systemLeakRe.MatchString(trimmed) {
		return FallbackLeak
	}
	return trimmed
}
