package conversation

import (
	"testing"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"My name is Adrian", "Adrian"},
		{"my name is adrian casey", "Adrian Casey"},
		{"Hi, this is Jordan", "Jordan"},
		{"I'm Priya and I run ops", "Priya"},
		{"It's Sam from Acme", "Sam"},
		{"call me Alex", "Alex"},
		{"Jordan here, following up", "Jordan"},
		{"I am not sure", ""},
		{"I'm unsure about the budget", ""},
		{"I am definitely interested", ""},
		{"maybe next week", ""},
		{"We need a chatbot", ""},
	}
	for _, tt := range tests {
		if got := extractName(tt.utterance); got != tt.want {
			t.Errorf("extractName(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestExtractCompany(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"I work at Acme", "Acme"},
		{"I'm with Bright Path Consulting", "Bright Path Consulting"},
		{"founder of Northwind Labs", "Northwind Labs"},
		{"OnCore Services. adrianjcasey@gmail.com", "OnCore Services"},
		{"we run Apex Industries out of Brisbane", "Apex Industries"},
		{"just exploring options", ""},
	}
	for _, tt := range tests {
		if got := extractCompany(tt.utterance); got != tt.want {
			t.Errorf("extractCompany(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestExtractContactDetails(t *testing.T) {
	up := ExtractFields("OnCore Services. adrianjcasey@gmail.com 0431481227", leads.FieldStatus{})
	if up.Email != "adrianjcasey@gmail.com" {
		t.Errorf("email = %q", up.Email)
	}
	if up.Phone != "0431481227" {
		t.Errorf("phone = %q", up.Phone)
	}
	if up.Company != "OnCore Services" {
		t.Errorf("company = %q", up.Company)
	}
}

func TestExtractPhoneFormats(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"you can reach me on 0412345678", "0412345678"},
		{"number is +61412345678", "+61412345678"},
		{"call +44 7700900123", "+44 7700900123"},
		{"no digits here", ""},
	}
	for _, tt := range tests {
		up := ExtractFields(tt.utterance, leads.FieldStatus{})
		if up.Phone != tt.want {
			t.Errorf("phone from %q = %q, want %q", tt.utterance, up.Phone, tt.want)
		}
	}
}

func TestExtractTimeline(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"we need this ASAP", "ASAP"},
		{"hoping to start next week", "Within 1 month"},
		{"probably next month", "1-3 months"},
		{"sometime this year", "3-6 months"},
		{"just researching for now", "Just researching"},
		{"no timing in mind", ""},
	}
	for _, tt := range tests {
		if got := extractTimeline(tt.utterance); got != tt.want {
			t.Errorf("extractTimeline(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestExtractBudgetKeepsLiteral(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"we have $50k set aside", "$50k"},
		{"around $75,000 all up", "$75,000"},
		{"thinking 20k - 50k", "20k - 50k"},
		{"budget is 100k", "100k"},
		{"not sure on budget yet", ""},
	}
	for _, tt := range tests {
		if got := extractBudget(tt.utterance); got != tt.want {
			t.Errorf("extractBudget(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestExtractProjectType(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"we want to automate our intake", "AI Automation"},
		{"need a chatbot for support", "AI Chatbot"},
		{"build an MVP fast", "Rapid Prototyping"},
		{"looking for a fractional CTO", "Fractional CTO"},
		{"integrate AI into our CRM", "AI Integration"},
		{"help writing technical specs", "Requirements & Specifications"},
		{"hello there", ""},
	}
	for _, tt := range tests {
		if got := extractProjectType(tt.utterance); got != tt.want {
			t.Errorf("extractProjectType(%q) = %q, want %q", tt.utterance, got, tt.want)
		}
	}
}

func TestExtractFieldsIdempotent(t *testing.T) {
	utterance := "My name is Adrian, email adrian@oncore.com, budget $50k"

	first := ExtractFields(utterance, leads.FieldStatus{})
	if first.Name == "" || first.Email == "" || first.Budget == "" {
		t.Fatalf("first pass missed fields: %+v", first)
	}

	var lead leads.Lead
	var status leads.FieldStatus
	ApplyUpdate(&lead, &status, first)

	// A second pass over the same utterance proposes nothing new.
	second := ExtractFields(utterance, status)
	if !second.Empty() {
		t.Fatalf("second pass should be empty, got %+v", second)
	}
	if lead.Name != "Adrian" || lead.Email != "adrian@oncore.com" || lead.Budget != "$50k" {
		t.Fatalf("lead state corrupted: %+v", lead)
	}
}

func TestExtractAnyFieldIgnoresCollectedState(t *testing.T) {
	up := ExtractAnyField("my email is corrected@example.com")
	if up.Email != "corrected@example.com" {
		t.Fatalf("correction extraction failed: %+v", up)
	}
}

func TestExtractFromTranscript(t *testing.T) {
	now := time.Now()
	history := []Turn{
		{Role: ChatRoleAssistant, Text: "Hi! What brings you here?", Timestamp: now},
		{Role: ChatRoleUser, Text: "We want to automate invoice processing", Timestamp: now},
		{Role: ChatRoleAssistant, Text: "Great, tell me more", Timestamp: now},
		{Role: ChatRoleUser, Text: "My name is Adrian, I work at OnCore", Timestamp: now},
		{Role: ChatRoleUser, Text: "adrian@oncore.com and we need it ASAP", Timestamp: now},
		{Role: ChatRoleUser, Text: "my name is Someone Else", Timestamp: now},
	}

	up := ExtractFromTranscript(history)
	if up.ProjectType != "AI Automation" {
		t.Errorf("project type = %q", up.ProjectType)
	}
	// Earliest mention wins; the later re-introduction is ignored.
	if up.Name != "Adrian" {
		t.Errorf("name = %q", up.Name)
	}
	if up.Company != "OnCore" {
		t.Errorf("company = %q", up.Company)
	}
	if up.Email != "adrian@oncore.com" {
		t.Errorf("email = %q", up.Email)
	}
	if up.Timeline != "ASAP" {
		t.Errorf("timeline = %q", up.Timeline)
	}
}
