package redact

import (
	"strings"
	"testing"
)

func TestStringRedactsSecrets(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bearer token", "Authorization: Bearer sk-abc123def456"},
		{"api key assignment", "api_key=AKIA9999EXAMPLE1234"},
		{"password pair", "password: hunter22secret"},
		{"x-api-key header", "x-api-key: 0123456789abcdef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.in)
			if !strings.Contains(out, "[REDACTED]") {
				t.Fatalf("String(%q) = %q, secret not redacted", tc.in, out)
			}
			if strings.Contains(out, "sk-abc123def456") ||
				strings.Contains(out, "AKIA9999EXAMPLE1234") ||
				strings.Contains(out, "hunter22secret") ||
				strings.Contains(out, "0123456789abcdef") {
				t.Fatalf("String(%q) = %q, secret survived", tc.in, out)
			}
		})
	}
}

func TestStringLeavesPlainTextAlone(t *testing.T) {
	in := "user asked about backup configuration in the wiki"
	if out := String(in); out != in {
		t.Fatalf("String(%q) = %q, want unchanged", in, out)
	}
}

func TestStringEmpty(t *testing.T) {
	if out := String(""); out != "" {
		t.Fatalf("String(\"\") = %q", out)
	}
}

func TestSprintf(t *testing.T) {
	out := Sprintf("request failed: token=%s", "abcdef123456")
	if strings.Contains(out, "abcdef123456") {
		t.Fatalf("Sprintf leaked the token: %q", out)
	}
}
