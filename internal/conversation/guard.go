package conversation

import (
	"strings"
)

// Rejection reasons returned by MessagePolicy.Check.
const (
	RejectTooShort     = "too_short"
	RejectTooLong      = "too_long"
	RejectSpamKeyword  = "spam_keyword"
	RejectSpecialChars = "special_chars"
	RejectFlood        = "character_flood"
)

// MessagePolicy screens inbound messages before any model call. Rejected
// messages cost nothing and leave the session state untouched.
type MessagePolicy struct {
	MinLength           int
	MaxLength           int
	SpamKeywords        []string
	MaxSpecialCharRatio float64
}

// DefaultMessagePolicy returns the production screening thresholds.
func DefaultMessagePolicy() MessagePolicy {
	return MessagePolicy{
		MinLength: 2,
		MaxLength: 500,
		SpamKeywords: []string{
			"viagra", "casino", "lottery", "prince", "inheritance", "crypto", "nft",
		},
		MaxSpecialCharRatio: 0.6,
	}
}

// Check validates one message. It returns the rejection reason and true when
// the message should be refused.
func (p MessagePolicy) Check(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)

	if len(trimmed) < p.MinLength {
		return RejectTooShort, true
	}
	if len(trimmed) > p.MaxLength {
		return RejectTooLong, true
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range p.SpamKeywords {
		if strings.Contains(lower, kw) {
			return RejectSpamKeyword, true
		}
	}

	if p.MaxSpecialCharRatio > 0 {
		special := 0
		total := 0
		for _, r := range trimmed {
			total++
			if !isWordChar(r) {
				special++
			}
		}
		if total > 0 && float64(special)/float64(total) > p.MaxSpecialCharRatio {
			return RejectSpecialChars, true
		}
	}

	if hasCharacterFlood(trimmed, 5) {
		return RejectFlood, true
	}

	return "", false
}

// hasCharacterFlood reports runs of n or more identical characters.
func hasCharacterFlood(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func isWordChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '.' || r == ',' || r == '\'' || r == '-' || r == '?' || r == '!' || r == '@':
		return true
	}
	return false
}
