package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Investigator is a named participant on a grant, as reported by the ARC
// data portal for either the announcement or the current state.
type Investigator struct {
	Title        string `json:"title"`
	FirstName    string `json:"first_name"`
	FamilyName   string `json:"family_name"`
	RoleName     string `json:"role_name"`
	RoleCode     string `json:"role_code"`
	IsFellowship *bool  `json:"is_fellowship"`
	ORCID        string `json:"orcid"`
}

// FullName joins the non-empty parts of title, first name and family name
// with single spaces.
func (inv Investigator) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{inv.Title, inv.FirstName, inv.FamilyName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// IsChief reports whether the investigator holds the Chief Investigator
// role, by role code "CI" or role name "chief investigator".
func (inv Investigator) IsChief() bool {
	return strings.EqualFold(inv.RoleCode, "CI") ||
		strings.EqualFold(inv.RoleName, "chief investigator")
}

// FoRClassification is a Field of Research (or socio-economic objective)
// entry on a grant. Codes are hierarchical digit strings: 2 digits for a
// division, 4 for a group, 6 for a field.
type FoRClassification struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}

// Division returns the 2-digit division prefix of the code, or "" if the
// code is shorter than a division.
func (c FoRClassification) Division() string {
	if len(c.Code) < 2 {
		return ""
	}
	return c.Code[:2]
}

// Group returns the 4-digit group prefix of the code, or "" for division
// level codes.
func (c FoRClassification) Group() string {
	if len(c.Code) < 4 {
		return ""
	}
	return c.Code[:4]
}

// Under reports whether the code sits under the given ancestor prefix.
func (c FoRClassification) Under(prefix string) bool {
	return prefix != "" && strings.HasPrefix(c.Code, prefix)
}

// GrantRecord is one funded award, normalized from a detail response.
// Records are immutable once built.
type GrantRecord struct {
	Code                                  string              `json:"code"`
	SchemeName                            string              `json:"scheme_name"`
	FundingCommencementYear               *int                `json:"funding_commencement_year"`
	GrantStatus                           string              `json:"grant_status"`
	FundingAtAnnouncement                 *decimal.Decimal    `json:"funding_at_announcement"`
	FundingCurrent                        *decimal.Decimal    `json:"funding_current"`
	AdministeringOrganisation             string              `json:"administering_organisation"`
	AdministeringOrganisationAnnouncement string              `json:"administering_organisation_announcement"`
	Summary                               string              `json:"summary"`
	FieldOfResearch                       []FoRClassification `json:"field_of_research"`
	SocioEconomicObjective                []FoRClassification `json:"socio_economic_objective"`
	NationalInterestTestStatement         string              `json:"national_interest_test_statement"`
	InvestigatorsCurrent                  []Investigator      `json:"investigators_current"`
	InvestigatorsAnnouncement             []Investigator      `json:"investigators_at_announcement"`
}

// ChiefInvestigators returns the CI sublist of the current investigator
// list, falling back to the announcement list when current is empty. The
// two lists are never merged.
func (g *GrantRecord) ChiefInvestigators() []Investigator {
	source := g.InvestigatorsCurrent
	if len(source) == 0 {
		source = g.InvestigatorsAnnouncement
	}
	var cis []Investigator
	for _, inv := range source {
		if inv.IsChief() {
			cis = append(cis, inv)
		}
	}
	return cis
}

// PrimaryFieldOfResearch returns the classifications flagged primary, in
// record order.
func (g *GrantRecord) PrimaryFieldOfResearch() []FoRClassification {
	var primary []FoRClassification
	for _, c := range g.FieldOfResearch {
		if c.IsPrimary {
			primary = append(primary, c)
		}
	}
	return primary
}

// Funded reports whether at least one funding amount is a positive number.
func (g *GrantRecord) Funded() bool {
	for _, amt := range []*decimal.Decimal{g.FundingAtAnnouncement, g.FundingCurrent} {
		if amt != nil && amt.IsPositive() {
			return true
		}
	}
	return false
}
