package conversation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
)

// The model embeds lead fields in an HTML comment when it shows a
// confirmation summary. The block never reaches the visitor.
var structuredDataRE = regexp.MustCompile(`(?s)<!--\s*STRUCTURED_DATA:\s*(\{.*?\})\s*-->`)

// StructuredLead is the model-reported snapshot of the collected fields.
// Model values take precedence over heuristic extraction.
type StructuredLead struct {
	Name        string  `json:"name"`
	Company     string  `json:"company"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	ProjectType string  `json:"projectType"`
	Timeline    string  `json:"timeline"`
	Budget      string  `json:"budget"`
	Score       float64 `json:"score"`
}

// ParseStructuredData extracts the hidden block from a model reply. It
// returns the parsed fields (nil when absent or malformed) and the reply text
// with the block stripped. A malformed block is dropped silently; the
// heuristic extraction already captured what it could.
func ParseStructuredData(reply string) (*StructuredLead, string) {
	m := structuredDataRE.FindStringSubmatch(reply)
	stripped := strings.TrimSpace(structuredDataRE.ReplaceAllString(reply, ""))
	if m == nil {
		return nil, stripped
	}

	var sd StructuredLead
	if err := json.Unmarshal([]byte(m[1]), &sd); err != nil {
		return nil, stripped
	}
	return &sd, stripped
}

// Apply overlays model-reported values onto the lead. Only non-empty values
// land; the model cannot blank a field the heuristics filled.
func (sd *StructuredLead) Apply(lead *leads.Lead, status *leads.FieldStatus) {
	if sd == nil {
		return
	}
	up := FieldUpdate{
		Name:        cleanStructuredName(sd.Name),
		Company:     strings.TrimSpace(sd.Company),
		Email:       strings.TrimSpace(sd.Email),
		Phone:       strings.TrimSpace(sd.Phone),
		ProjectType: strings.TrimSpace(sd.ProjectType),
		Timeline:    strings.TrimSpace(sd.Timeline),
		Budget:      strings.TrimSpace(sd.Budget),
	}
	// Model output overrides heuristics, so collected flags are ignored
	// here and every non-empty value is written.
	forceApply(lead, status, up)
}

func forceApply(lead *leads.Lead, status *leads.FieldStatus, up FieldUpdate) {
	tmp := leads.FieldStatus{}
	ApplyUpdate(lead, &tmp, up)
	status.Name = status.Name || tmp.Name
	status.Company = status.Company || tmp.Company
	status.Email = status.Email || tmp.Email
	status.Phone = status.Phone || tmp.Phone
	status.ProjectType = status.ProjectType || tmp.ProjectType
	status.Timeline = status.Timeline || tmp.Timeline
	status.Budget = status.Budget || tmp.Budget
}

// cleanStructuredName guards against the model echoing a non-answer back as
// a name.
func cleanStructuredName(name string) string {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)
	for _, junk := range []string{"not sure", "unknown", "n/a", "na", "none", "unsure"} {
		if lower == junk {
			return ""
		}
	}
	return trimmed
}
