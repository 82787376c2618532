package leads

import (
	"regexp"
	"strconv"
	"strings"
)

// Scoring thresholds. Qualified leads are flagged in storage; leads at or
// above the notify threshold trigger an admin email.
const (
	QualifiedThreshold = 60
	NotifyThreshold    = 70
	maxScore           = 100
)

var timelinePoints = map[string]int{
	"ASAP":             30,
	"Within 1 month":   25,
	"1-3 months":       20,
	"3-6 months":       10,
	"Just researching": 5,
}

var budgetAmountRE = regexp.MustCompile(`\$?\s*([\d,]+)\s*(k)?`)

// Score computes the deterministic 0-100 lead score from the collected
// fields. Identical fields always produce an identical score.
func Score(lead *Lead) int {
	score := 0

	if pts, ok := timelinePoints[lead.Timeline]; ok {
		score += pts
	} else if strings.TrimSpace(lead.Timeline) != "" {
		score += 10
	}

	score += budgetPoints(lead.Budget)

	if len(strings.TrimSpace(lead.Name)) > 1 {
		score += 10
	}
	if len(strings.TrimSpace(lead.Company)) > 1 {
		score += 10
	}
	if ValidEmail(lead.Email) {
		score += 15
	}
	if strings.TrimSpace(lead.Phone) != "" {
		score += 5
	}
	if len(strings.TrimSpace(lead.ProjectType)) > 5 {
		score += 10
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// Qualified reports whether a score clears the qualification bar.
func Qualified(score int) bool {
	return score >= QualifiedThreshold
}

func budgetPoints(budget string) int {
	b := strings.TrimSpace(budget)
	if b == "" {
		return 0
	}
	amount, ok := parseBudgetAmount(b)
	if !ok {
		// "Not sure yet" and friends still show intent
		return 5
	}
	switch {
	case amount >= 100000:
		return 30
	case amount >= 75000:
		return 28
	case amount >= 50000:
		return 25
	case amount >= 25000:
		return 20
	case amount >= 10000:
		return 15
	default:
		return 10
	}
}

// parseBudgetAmount reads the leading dollar figure out of a free-text budget.
// "$75,000" and "75k" both come back as 75000. Ranges use the lower bound.
func parseBudgetAmount(s string) (int, bool) {
	m := budgetAmountRE.FindStringSubmatch(strings.ToLower(s))
	if m == nil || m[1] == "" {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if m[2] == "k" {
		n *= 1000
	}
	return n, true
}
