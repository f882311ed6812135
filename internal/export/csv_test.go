package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tomw/arc-ci-ranker/internal/models"
)

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return &d
}

func sampleRecord() models.GrantRecord {
	return models.GrantRecord{
		Code:                      "DP230100001",
		SchemeName:                "Discovery Projects",
		FundingCommencementYear:   intPtr(2023),
		GrantStatus:               "Active",
		FundingAtAnnouncement:     decPtr("450000"),
		FundingCurrent:            decPtr("512345.67"),
		AdministeringOrganisation: "The University of Somewhere",
		FieldOfResearch: []models.FoRClassification{
			{Code: "4602", Name: "Artificial intelligence", IsPrimary: true},
			{Code: "0801", Name: "AI and Image Processing"},
		},
		InvestigatorsCurrent: []models.Investigator{
			{Title: "Prof", FirstName: "Jane", FamilyName: "Smith", RoleCode: "CI", ORCID: "0000-0001-2345-6789"},
			{FirstName: "Rob", FamilyName: "Doe", RoleName: "Chief Investigator"},
			{FirstName: "Paula", FamilyName: "Jones", RoleCode: "PI"},
		},
	}
}

func TestToRowPreservesOrdering(t *testing.T) {
	row := ToRow(sampleRecord())

	if !reflect.DeepEqual(row.AllCodes, []string{"4602", "0801"}) {
		t.Errorf("AllCodes ordering changed: %v", row.AllCodes)
	}
	if !reflect.DeepEqual(row.PrimaryCodes, []string{"4602"}) {
		t.Errorf("PrimaryCodes wrong: %v", row.PrimaryCodes)
	}
	if !reflect.DeepEqual(row.ChiefInvestigators, []string{"Prof Jane Smith", "Rob Doe"}) {
		t.Errorf("CI list wrong (order must match record, non-CI dropped): %v", row.ChiefInvestigators)
	}
	// Only CIs with an ORCID contribute to the ORCID column.
	if !reflect.DeepEqual(row.ChiefInvestigatorORCIDs, []string{"0000-0001-2345-6789"}) {
		t.Errorf("ORCID list wrong: %v", row.ChiefInvestigatorORCIDs)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	noYear := models.GrantRecord{
		Code:        "DP000000001",
		GrantStatus: "Closed",
	}
	rows := Rows([]models.GrantRecord{sampleRecord(), noYear})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	parsed, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed))
	}

	got, want := parsed[0], rows[0]
	if got.Code != want.Code || got.GrantStatus != want.GrantStatus {
		t.Errorf("scalar columns changed: %+v", got)
	}
	if got.FundingCommencementYear == nil || *got.FundingCommencementYear != 2023 {
		t.Errorf("year did not round-trip: %v", got.FundingCommencementYear)
	}
	if got.FundingCurrent == nil || !got.FundingCurrent.Equal(*want.FundingCurrent) {
		t.Errorf("funding did not round-trip: %v", got.FundingCurrent)
	}
	if !reflect.DeepEqual(got.AllCodes, want.AllCodes) ||
		!reflect.DeepEqual(got.AllNames, want.AllNames) ||
		!reflect.DeepEqual(got.ChiefInvestigators, want.ChiefInvestigators) {
		t.Errorf("multi-valued columns did not round-trip: %+v", got)
	}

	empty := parsed[1]
	if empty.FundingCommencementYear != nil || empty.FundingAtAnnouncement != nil {
		t.Errorf("absent values must stay absent: %+v", empty)
	}
	if len(empty.ChiefInvestigators) != 0 {
		t.Errorf("empty CI column must parse to an empty list: %v", empty.ChiefInvestigators)
	}
}

func TestReadCSVRejectsUnexpectedHeader(t *testing.T) {
	bad := "code,year\nDP1,2020\n"
	if _, err := ReadCSV(bytes.NewBufferString(bad)); err == nil {
		t.Fatal("expected a schema error for a malformed header")
	}
}

func TestSplitMultiTrimsAndDropsBlanks(t *testing.T) {
	got := SplitMulti("4602; 0801;  ; 46")
	want := []string{"4602", "0801", "46"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitMulti = %v, want %v", got, want)
	}
	if SplitMulti("") != nil {
		t.Error("empty input must yield no entries")
	}
}
