package conversation

import (
	"regexp"
	"strings"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
)

// FieldUpdate carries newly extracted field values. Empty strings mean no
// change; extraction never clears a field.
type FieldUpdate struct {
	Name        string
	Company     string
	Email       string
	Phone       string
	ProjectType string
	Timeline    string
	Budget      string
}

// Empty reports whether the update carries no values at all.
func (u FieldUpdate) Empty() bool {
	return u == FieldUpdate{}
}

var (
	extractEmailRE = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	extractPhoneRE = regexp.MustCompile(`(?:\+?61|0)4\d{8}|\b\d{10}\b|\+\d{1,3} ?\d{6,14}`)
	budgetRE       = regexp.MustCompile(`(?i)\$ ?\d+k? ?- ?\$? ?\d+k\b|\b\d+k? ?- ?\d+k\b|\$ ?\d+k\b|\$ ?\d{1,3},\d{3}(?:,\d{3})*|\b\d+k\b`)
)

// Explicit self-introduction patterns. Names are never guessed from bare
// capitalized words; the visitor has to introduce themselves.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([a-z]+(?: [a-z]+)?)`),
	regexp.MustCompile(`(?i)\bthis is ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bi am ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bi'm ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bit's ([a-z]+) from\b`),
	regexp.MustCompile(`(?i)\bcall me ([a-z]+)`),
	regexp.MustCompile(`(?i)^([a-z]+) here\b`),
}

// Words that can follow an introduction pattern but are never names.
// "I am not sure" must not produce the name "Not".
var nameDenylist = map[string]struct{}{
	"not": {}, "sure": {}, "unsure": {}, "uncertain": {}, "maybe": {},
	"possibly": {}, "probably": {}, "definitely": {}, "with": {}, "from": {},
	"at": {}, "the": {}, "a": {}, "just": {}, "here": {}, "really": {},
	"very": {}, "so": {}, "also": {}, "currently": {}, "still": {},
	"interested": {}, "looking": {}, "trying": {}, "calling": {},
	"wondering": {}, "thinking": {}, "good": {}, "great": {}, "fine": {},
	"happy": {}, "glad": {}, "afraid": {}, "sorry": {},
}

// Trailing words that mark the end of a name capture.
var nameStopwords = map[string]struct{}{
	"and": {}, "from": {}, "at": {}, "with": {}, "here": {}, "but": {},
}

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:(?i:work(?:ing)? (?:at|for) |i'm (?:with|from) |i am (?:with|from) |we're |we are |i represent |founder of |ceo (?:of|at) ))([A-Z][A-Za-z0-9&.-]*(?: [A-Z][A-Za-z0-9&.-]*){0,3})`),
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.-]*(?: [A-Z][A-Za-z0-9&.-]*){0,3} (?:Services|Industries|Solutions|Technologies|Consulting|Group|Labs))\b`),
	regexp.MustCompile(`\b([A-Z][A-Za-z]{2,})[.,]? [a-zA-Z0-9._%+-]+@`),
}

// Keyword tables follow first-match-wins order, so more specific phrases sit
// above the catch-alls.
var timelinePatterns = []struct {
	re     *regexp.Regexp
	bucket string
}{
	{regexp.MustCompile(`(?i)\b(?:asap|immediately|urgent(?:ly)?|right away|yesterday)\b`), "ASAP"},
	{regexp.MustCompile(`(?i)\b(?:next week|this month|within (?:a|1|one) month|few weeks)\b`), "Within 1 month"},
	{regexp.MustCompile(`(?i)\b(?:next month|couple of months|1-3 months|next few months)\b`), "1-3 months"},
	{regexp.MustCompile(`(?i)\b(?:next quarter|this year|3-6 months|6 months|later this year)\b`), "3-6 months"},
	{regexp.MustCompile(`(?i)\b(?:explor(?:e|ing)|research(?:ing)?|just looking|no rush|early days)\b`), "Just researching"},
}

var projectTypePatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\bautomat(?:e|ion|ing)\b`), "AI Automation"},
	{regexp.MustCompile(`(?i)\bchat ?bot\b|\bconversational\b|\bvirtual assistant\b`), "AI Chatbot"},
	{regexp.MustCompile(`(?i)\bprototyp(?:e|ing)\b|\bmvp\b|\bproof of concept\b|\bpoc\b`), "Rapid Prototyping"},
	{regexp.MustCompile(`(?i)\bfractional\b|\bcto\b|\bcpo\b|\btechnical leadership\b`), "Fractional CTO"},
	{regexp.MustCompile(`(?i)\bintegrat(?:e|ion|ing)\b`), "AI Integration"},
	{regexp.MustCompile(`(?i)\bspec(?:s|ification)?s?\b|\brequirements\b|\bscoping\b`), "Requirements & Specifications"},
	{regexp.MustCompile(`(?i)\bmachine learning\b|\bml model\b|\b(?:an?|with|using|build) ai\b`), "AI Integration"},
}

// ExtractFields scans one utterance for qualification fields not yet
// collected. Fields already collected are never overwritten, which makes the
// pass idempotent: running it twice over the same utterance changes nothing.
func ExtractFields(utterance string, status leads.FieldStatus) FieldUpdate {
	var up FieldUpdate

	email := extractEmailRE.FindString(utterance)
	if !status.Email && email != "" {
		up.Email = email
	}

	// Strip the email before the phone scan so its digits can't be
	// mistaken for a number.
	phoneSource := utterance
	if email != "" {
		phoneSource = strings.ReplaceAll(phoneSource, email, " ")
	}
	if !status.Phone {
		if phone := extractPhoneRE.FindString(phoneSource); phone != "" {
			up.Phone = strings.TrimSpace(phone)
		}
	}

	if !status.Name {
		up.Name = extractName(utterance)
	}
	if !status.Company {
		up.Company = extractCompany(utterance)
	}
	if !status.Timeline {
		up.Timeline = extractTimeline(utterance)
	}
	if !status.Budget {
		up.Budget = extractBudget(utterance)
	}
	if !status.ProjectType {
		up.ProjectType = extractProjectType(utterance)
	}

	return up
}

// ExtractAnyField scans an utterance ignoring collected state. Used during
// correction turns, where the visitor is explicitly replacing a value.
func ExtractAnyField(utterance string) FieldUpdate {
	return ExtractFields(utterance, leads.FieldStatus{})
}

// ExtractFromTranscript sweeps the visitor side of a conversation
// oldest-first, filling each field from the earliest mention.
func ExtractFromTranscript(history []Turn) FieldUpdate {
	var merged FieldUpdate
	var status leads.FieldStatus
	for _, turn := range history {
		if turn.Role != ChatRoleUser {
			continue
		}
		up := ExtractFields(turn.Text, status)
		mergeUpdate(&merged, &status, up)
	}
	return merged
}

// ApplyUpdate writes extracted values onto the lead and marks them collected.
func ApplyUpdate(lead *leads.Lead, status *leads.FieldStatus, up FieldUpdate) {
	if up.Name != "" {
		lead.Name = up.Name
		status.Name = true
	}
	if up.Company != "" {
		lead.Company = up.Company
		status.Company = true
	}
	if up.Email != "" {
		lead.Email = up.Email
		status.Email = true
	}
	if up.Phone != "" {
		lead.Phone = up.Phone
		status.Phone = true
	}
	if up.ProjectType != "" {
		lead.ProjectType = up.ProjectType
		status.ProjectType = true
	}
	if up.Timeline != "" {
		lead.Timeline = up.Timeline
		status.Timeline = true
	}
	if up.Budget != "" {
		lead.Budget = up.Budget
		status.Budget = true
	}
}

func mergeUpdate(merged *FieldUpdate, status *leads.FieldStatus, up FieldUpdate) {
	if up.Name != "" {
		merged.Name = up.Name
		status.Name = true
	}
	if up.Company != "" {
		merged.Company = up.Company
		status.Company = true
	}
	if up.Email != "" {
		merged.Email = up.Email
		status.Email = true
	}
	if up.Phone != "" {
		merged.Phone = up.Phone
		status.Phone = true
	}
	if up.ProjectType != "" {
		merged.ProjectType = up.ProjectType
		status.ProjectType = true
	}
	if up.Timeline != "" {
		merged.Timeline = up.Timeline
		status.Timeline = true
	}
	if up.Budget != "" {
		merged.Budget = up.Budget
		status.Budget = true
	}
}

func extractName(utterance string) string {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		words := strings.Fields(strings.ToLower(m[1]))
		if len(words) == 0 {
			continue
		}
		if _, denied := nameDenylist[words[0]]; denied {
			continue
		}
		// Trim trailing connectives picked up by the two-word capture.
		if len(words) == 2 {
			if _, stop := nameStopwords[words[1]]; stop {
				words = words[:1]
			}
		}
		return titleCase(strings.Join(words, " "))
	}
	return ""
}

func extractCompany(utterance string) string {
	for _, re := range companyPatterns {
		if m := re.FindStringSubmatch(utterance); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractTimeline(utterance string) string {
	for _, p := range timelinePatterns {
		if p.re.MatchString(utterance) {
			return p.bucket
		}
	}
	return ""
}

// extractBudget keeps the visitor's literal phrasing. "$50k" and "20-30k"
// are stored as written; the scorer parses them later.
func extractBudget(utterance string) string {
	return strings.TrimSpace(budgetRE.FindString(utterance))
}

func extractProjectType(utterance string) string {
	for _, p := range projectTypePatterns {
		if p.re.MatchString(utterance) {
			return p.label
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
