package gate

import (
	"fmt"
	"regexp"

	"github.com/ragfence/ragfence/internal/abuse"

	"github.com/ragfence/ragfence/internal/config"
)

// Rule is one disallowed-intent classifier. Rules are evaluated over the
// normalized (trimmed, lowercased) query; any single match rejects.
type Rule struct {
	ID       string
	Category abuse.Category
	re       *regexp.Regexp
}

// Match reports whether the rule fires on the normalized text.
func (r Rule) Match(normalized string) bool {
	return r.re.MatchString(normalized)
}

func mustRule(id string, category abuse.Category, pattern string) Rule {
	return Rule{
		ID:       id,
		Category: category,
		re:       regexp.MustCompile(pattern),
	}
}

// builtinRules is the fixed, ordered intent-rule table. Patterns are
// bilingual (English/German) to match the knowledge bases this fronts.
// Evaluation is a pure fold over this list; each entry is unit-testable
// in isolation.
var builtinRules = []Rule{
	mustRule("role_override", abuse.CategoryJailbreakAttempt,
		`\b(act as|you are now|du bist jetzt|pretend to be|pretend you|roleplay|spiel die rolle|imagine you are|verhalte dich wie)\b`),
	mustRule("instruction_override", abuse.CategoryJailbreakAttempt,
		`\b(ignore|disregard|vergiss|vergessen)\b.*\b(previous|prior|all|alle|vorherigen?|frühere[nr]?)\b.*\b(instructions?|anweisung(en)?|rules?|regeln?)\b`),
	mustRule("privileged_execution", abuse.CategorySystemManipulation,
		`\b(system|admin|administrator|root|sudo|execute|ausführen|befehle?)\b`),
	mustRule("structural_injection", abuse.CategoryPromptInjection,
		"[\\[\\]{}<>;|\"`]|&&|\\$\\(|\\$\\{|\\{\\{|(?:^|[^a-z0-9])'|'(?:[^a-z0-9]|$)"),
	mustRule("prompt_manipulation", abuse.CategoryPromptInjection,
		`\b(prompts?|overrid(e|es|den|ing)|überschreiben?|ersetze|eingabeaufforderung)\b`),
	mustRule("meta_model", abuse.CategorySystemManipulation,
		`\b(gpt|claude|llm|ai model|ki modell|language model|sprachmodell|temperature|sampling|max tokens)\b`),
	mustRule("code_execution", abuse.CategoryCodeInjection,
		`\b(python|javascript|sql|bash|shell|powershell|cmd|exec|script|code ausführen|run this code|exploit|hack|injection|programmier\w*)\b`),
	mustRule("sensitive_data", abuse.CategoryPersonalInfo,
		`\b(password|passwort|passwörter|secret|geheim\w*|token|api key|credentials?|anmeldedaten|schlüssel|login|private key)\b`),
	mustRule("conversational_bypass", abuse.CategoryJailbreakAttempt,
		`\b(but first|aber zuerst|actually instead|stattdessen|however, (ignore|forget))\b`),
	mustRule("meta_conversation", abuse.CategorySystemManipulation,
		`\b(how (do|does|were) you (work|function|trained)|wie funktionierst du|what (can|are) you (do|able to)|was kannst du|how were you (made|created|built))\b`),
	mustRule("explicit_override", abuse.CategoryJailbreakAttempt,
		`\b(forget (everything|all|your)|vergiss alles|new (role|task|instructions?|rules?)|neue (rolle|aufgabe|anweisung(en)?|regeln?))\b`),
	mustRule("social_engineering", abuse.CategoryJailbreakAttempt,
		`\b(emergency|notfall|urgent|dringend|please help me|bitte hilf mir|exception|ausnahme|special case|sonderfall)\b`),
}

// compileExtraRules turns deployment-supplied rule config into compiled
// rules appended after the built-in table.
func compileExtraRules(extra []config.RuleConfig) ([]Rule, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	out := make([]Rule, 0, len(extra))
	for _, rc := range extra {
		category := abuse.Category(rc.Category)
		if !category.Valid() {
			category = abuse.CategorySuspiciousPattern
		}
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile extra rule %q: %w", rc.ID, err)
		}
		out = append(out, Rule{ID: rc.ID, Category: category, re: re})
	}
	return out, nil
}
