package conversation

import (
	"strings"
	"testing"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
)

const sampleReply = `Perfect! I've got all the information I need. Let me confirm what I've captured...

📋 Name: Adrian Casey
🏢 Company: OnCore Services

If that's everything correct, I'll pass these details to our team.

<!--STRUCTURED_DATA:
{
  "name": "Adrian Casey",
  "company": "OnCore Services",
  "email": "adrian@oncore.com",
  "phone": "0431481227",
  "projectType": "AI Integration",
  "timeline": "ASAP",
  "budget": "$100k",
  "score": 85
}
-->`

func TestParseStructuredData(t *testing.T) {
	sd, stripped := ParseStructuredData(sampleReply)
	if sd == nil {
		t.Fatal("expected structured data")
	}
	if sd.Name != "Adrian Casey" || sd.Company != "OnCore Services" {
		t.Errorf("identity fields wrong: %+v", sd)
	}
	if sd.Email != "adrian@oncore.com" || sd.Phone != "0431481227" {
		t.Errorf("contact fields wrong: %+v", sd)
	}
	if sd.ProjectType != "AI Integration" || sd.Timeline != "ASAP" || sd.Budget != "$100k" {
		t.Errorf("project fields wrong: %+v", sd)
	}
	if sd.Score != 85 {
		t.Errorf("score = %v", sd.Score)
	}
	if strings.Contains(stripped, "STRUCTURED_DATA") {
		t.Error("block not stripped from visitor-facing text")
	}
	if !strings.Contains(stripped, "Adrian Casey") {
		t.Error("visible summary lost in stripping")
	}
}

func TestParseStructuredDataAbsent(t *testing.T) {
	sd, stripped := ParseStructuredData("Just a normal reply.")
	if sd != nil {
		t.Fatal("expected nil for reply without block")
	}
	if stripped != "Just a normal reply." {
		t.Errorf("text altered: %q", stripped)
	}
}

func TestParseStructuredDataMalformed(t *testing.T) {
	reply := `Summary here. <!--STRUCTURED_DATA: {not valid json} -->`
	sd, stripped := ParseStructuredData(reply)
	if sd != nil {
		t.Fatal("malformed block should be dropped")
	}
	if strings.Contains(stripped, "STRUCTURED_DATA") {
		t.Error("malformed block should still be stripped")
	}
}

func TestStructuredApplyOverridesHeuristics(t *testing.T) {
	lead := leads.Lead{Name: "Adrian", Email: "old@oncore.com"}
	status := leads.FieldStatus{Name: true, Email: true}

	sd := &StructuredLead{
		Name:  "Adrian Casey",
		Email: "adrian@oncore.com",
		Phone: "0431481227",
	}
	sd.Apply(&lead, &status)

	if lead.Name != "Adrian Casey" {
		t.Errorf("model name should override heuristic: %q", lead.Name)
	}
	if lead.Email != "adrian@oncore.com" {
		t.Errorf("model email should override heuristic: %q", lead.Email)
	}
	if lead.Phone != "0431481227" || !status.Phone {
		t.Errorf("new field not applied: %+v %+v", lead, status)
	}
}

func TestStructuredApplyDoesNotBlankFields(t *testing.T) {
	lead := leads.Lead{Budget: "$50k"}
	status := leads.FieldStatus{Budget: true}

	sd := &StructuredLead{Budget: ""}
	sd.Apply(&lead, &status)

	if lead.Budget != "$50k" {
		t.Errorf("empty model value must not clear field: %q", lead.Budget)
	}
}

func TestStructuredApplyRejectsJunkNames(t *testing.T) {
	var lead leads.Lead
	var status leads.FieldStatus

	sd := &StructuredLead{Name: "Not sure"}
	sd.Apply(&lead, &status)

	if lead.Name != "" || status.Name {
		t.Errorf("junk name applied: %q", lead.Name)
	}
}
