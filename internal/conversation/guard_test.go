package conversation

import (
	"strings"
	"testing"
)

func TestMessagePolicyCheck(t *testing.T) {
	policy := DefaultMessagePolicy()

	tests := []struct {
		name    string
		message string
		reason  string
		reject  bool
	}{
		{"normal message", "I'd like to build a chatbot", "", false},
		{"single char", "h", RejectTooShort, true},
		{"empty", "   ", RejectTooShort, true},
		{"over limit", strings.Repeat("word ", 120), RejectTooLong, true},
		{"spam keyword", "win the lottery today", RejectSpamKeyword, true},
		{"spam keyword cased", "CRYPTO investment opportunity", RejectSpamKeyword, true},
		{"special char soup", "$$$###!!!%%%^^^&&&***", RejectSpecialChars, true},
		{"character flood", "hellooooooo there", RejectFlood, true},
		{"four repeats allowed", "soooo excited", "", false},
		{"punctuation ok", "What's the cost, roughly?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, rejected := policy.Check(tt.message)
			if rejected != tt.reject {
				t.Fatalf("Check(%q) rejected=%v, want %v (reason %q)", tt.message, rejected, tt.reject, reason)
			}
			if rejected && reason != tt.reason {
				t.Fatalf("Check(%q) reason=%q, want %q", tt.message, reason, tt.reason)
			}
		})
	}
}

func TestHasCharacterFlood(t *testing.T) {
	if !hasCharacterFlood("aaaaa", 5) {
		t.Error("five identical runes should flood")
	}
	if hasCharacterFlood("aaaa", 5) {
		t.Error("four identical runes should pass")
	}
	if hasCharacterFlood("abababab", 5) {
		t.Error("alternating runes should pass")
	}
}
