// Package gate classifies inbound queries before any retrieval or
// generation work happens. All operations are pure: the rule table and
// vocabulary are built once and only read afterwards, so a single
// Validator is safe for unbounded concurrent use.
package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ragfence/ragfence/internal/abuse"
	"github.com/ragfence/ragfence/internal/config"
)

// Reason identifies why a query was rejected.
type Reason string

const (
	ReasonEmptyQuery      Reason = "empty_query"
	ReasonTooLong         Reason = "too_long"
	ReasonPolicyViolation Reason = "policy_violation"
	ReasonOffTopic        Reason = "off_topic"
)

// Outcome is the immutable result of validating a single query.
// Rejections carry the matched incident category explicitly so callers
// never have to re-derive it from the user-facing message.
type Outcome struct {
	Accepted  bool
	Reason    Reason
	Category  abuse.Category
	RuleID    string
	Relevance float64
	Message   string
}

const (
	msgEmptyQuery = "Please enter a question."
	msgPolicy     = "Your request contains content that is not allowed. Please only ask questions about the knowledge base."
	msgOffTopic   = "Your question does not appear to relate to the knowledge base. Please ask about your documents, wiki pages, or configured knowledge sources."
)

// Validator is the stateless query gate.
type Validator struct {
	maxQueryLength int
	minRelevance   float64
	rules          []Rule

	vocab     map[string]struct{}
	longTerms []string // vocabulary entries longer than 4 runes, for substring matches
}

// NewValidator builds a Validator from config. Extra topics and rules
// from config extend the built-in tables.
func NewValidator(cfg config.GateConfig) (*Validator, error) {
	maxLen := cfg.MaxQueryLength
	if maxLen <= 0 {
		maxLen = 500
	}
	minRel := cfg.MinRelevance
	if minRel <= 0 {
		minRel = 0.3
	}

	extra, err := compileExtraRules(cfg.ExtraRules)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(builtinRules)+len(extra))
	rules = append(rules, builtinRules...)
	rules = append(rules, extra...)

	vocab := make(map[string]struct{}, len(allowedTopics)+len(cfg.ExtraTopics))
	var longTerms []string
	addTerm := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, ok := vocab[term]; ok {
			return
		}
		vocab[term] = struct{}{}
		if len([]rune(term)) > 4 {
			longTerms = append(longTerms, term)
		}
	}
	for _, t := range allowedTopics {
		addTerm(t)
	}
	for _, t := range cfg.ExtraTopics {
		addTerm(t)
	}

	return &Validator{
		maxQueryLength: maxLen,
		minRelevance:   minRel,
		rules:          rules,
		vocab:          vocab,
		longTerms:      longTerms,
	}, nil
}

// Validate classifies one query. Checks run in order: empty, length,
// intent rules, topic relevance.
func (v *Validator) Validate(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{
			Reason:   ReasonEmptyQuery,
			Category: abuse.CategorySuspiciousPattern,
			Message:  msgEmptyQuery,
		}
	}

	normalized := strings.ToLower(trimmed)

	if len([]rune(normalized)) > v.maxQueryLength {
		return Outcome{
			Reason:   ReasonTooLong,
			Category: abuse.CategorySuspiciousPattern,
			Message:  fmt.Sprintf("Your request is too long. Please keep it under %d characters.", v.maxQueryLength),
		}
	}

	for _, rule := range v.rules {
		if rule.Match(normalized) {
			return Outcome{
				Reason:   ReasonPolicyViolation,
				Category: rule.Category,
				RuleID:   rule.ID,
				Message:  msgPolicy,
			}
		}
	}

	score := v.relevance(normalized)
	if score < v.minRelevance {
		return Outcome{
			Reason:    ReasonOffTopic,
			Category:  abuse.CategoryOffTopicQuery,
			Relevance: score,
			Message:   msgOffTopic,
		}
	}

	return Outcome{Accepted: true, Relevance: score}
}

var nonAlnumRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// relevance scores the fraction of tokens that overlap the allowed-topic
// vocabulary. A token counts once even when it satisfies both the exact
// and the substring rule.
func (v *Validator) relevance(normalized string) float64 {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return 0
	}

	relevant := 0
	for _, field := range fields {
		word := nonAlnumRe.ReplaceAllString(field, "")
		if word == "" {
			continue
		}
		if v.tokenRelevant(word) {
			relevant++
		}
	}
	return float64(relevant) / float64(len(fields))
}

func (v *Validator) tokenRelevant(word string) bool {
	if len([]rune(word)) > 2 {
		if _, ok := v.vocab[word]; ok {
			return true
		}
	}
	for _, term := range v.longTerms {
		if strings.Contains(word, term) || strings.Contains(term, word) {
			return true
		}
	}
	return false
}

var (
	denySetRe    = regexp.MustCompile("[<>\"'`${}\\[\\];|&]")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Sanitize strips injection-prone characters, collapses whitespace, and
// truncates to the maximum query length. Total and idempotent.
func (v *Validator) Sanitize(text string) string {
	out := denySetRe.ReplaceAllString(text, "")
	out = whitespaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	runes := []rune(out)
	if len(runes) > v.maxQueryLength {
		out = strings.TrimSpace(string(runes[:v.maxQueryLength]))
	}
	return out
}
