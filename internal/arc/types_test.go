package arc

import (
	"encoding/json"
	"testing"
)

func TestGrantAttributesDecodeDefensively(t *testing.T) {
	payload := `{
		"code": "DP230100001",
		"scheme-name": "Discovery Projects",
		"funding-commencement-year": 2023,
		"grant-status": "Active",
		"funding-current": 345000.50,
		"current-admin-organisation": "The University of Somewhere",
		"field-of-research": [
			{"code": "4602", "name": "Artificial intelligence", "isPrimary": true},
			{"code": 460206, "name": "Knowledge representation"}
		],
		"investigators-current": "not a list",
		"investigators-at-announcement": [
			{"title": "Prof", "firstName": "Jane", "familyName": "Smith", "roleCode": "CI", "orcidIdentifier": " 0000-0001-2345-6789 "}
		]
	}`

	var attrs grantAttributes
	if err := json.Unmarshal([]byte(payload), &attrs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(attrs.InvestigatorsCurrent) != 0 {
		t.Errorf("non-list investigators must decode to empty, got %d entries", len(attrs.InvestigatorsCurrent))
	}
	if len(attrs.InvestigatorsAtAnnouncement) != 1 {
		t.Fatalf("expected 1 announcement investigator, got %d", len(attrs.InvestigatorsAtAnnouncement))
	}
	if len(attrs.FieldOfResearch) != 2 {
		t.Fatalf("expected 2 classifications, got %d", len(attrs.FieldOfResearch))
	}
	if got := string(attrs.FieldOfResearch[1].Code); got != "460206" {
		t.Errorf("numeric code must decode as string, got %q", got)
	}

	rec := attrs.Record()
	if rec.AdministeringOrganisation != "The University of Somewhere" {
		t.Errorf("admin organisation fallback not applied: %q", rec.AdministeringOrganisation)
	}
	if len(rec.InvestigatorsAnnouncement) != 1 || rec.InvestigatorsAnnouncement[0].ORCID != "0000-0001-2345-6789" {
		t.Errorf("ORCID not trimmed: %+v", rec.InvestigatorsAnnouncement)
	}
	if rec.FundingCommencementYear == nil || *rec.FundingCommencementYear != 2023 {
		t.Errorf("year not carried: %v", rec.FundingCommencementYear)
	}
}

func TestClassificationListLegacyString(t *testing.T) {
	var attrs grantAttributes
	payload := `{"field-of-research": "Expanding the horizons of quantum chemistry"}`
	if err := json.Unmarshal([]byte(payload), &attrs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	rec := attrs.Record()
	if len(rec.FieldOfResearch) != 1 {
		t.Fatalf("expected 1 legacy classification, got %d", len(rec.FieldOfResearch))
	}
	if rec.FieldOfResearch[0].Code != "" || !rec.FieldOfResearch[0].IsPrimary {
		t.Errorf("legacy entry should be a primary name-only classification: %+v", rec.FieldOfResearch[0])
	}
}

func TestFundedChecksAllFieldVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		funded  bool
	}{
		{"detail field positive", `{"funding-current": 100000}`, true},
		{"listing field positive", `{"announced-funding-amount": 1}`, true},
		{"zero funding is not funded", `{"scheme-name": "Discovery Projects", "funding-current": 0}`, false},
		{"no amounts at all", `{"scheme-name": "Discovery Projects"}`, false},
		{"negative amount is not funded", `{"funding-at-announcement": -5}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attrs grantAttributes
			if err := json.Unmarshal([]byte(tt.payload), &attrs); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if got := attrs.funded(); got != tt.funded {
				t.Errorf("funded() = %v, want %v", got, tt.funded)
			}
		})
	}
}

func TestPrimaryFieldOfResearchFallback(t *testing.T) {
	var attrs grantAttributes
	payload := `{"primary-field-of-research": [{"code": "0801", "name": "Artificial Intelligence and Image Processing", "isPrimary": true}]}`
	if err := json.Unmarshal([]byte(payload), &attrs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	rec := attrs.Record()
	if len(rec.FieldOfResearch) != 1 || rec.FieldOfResearch[0].Code != "0801" {
		t.Errorf("primary-field-of-research fallback not applied: %+v", rec.FieldOfResearch)
	}
}

func TestHTMLToTextStripsMarkup(t *testing.T) {
	got := htmlToText("<p>This project   aims to <b>advance</b>\nscience.</p>")
	want := "This project aims to advance science."
	if got != want {
		t.Errorf("htmlToText = %q, want %q", got, want)
	}
}
