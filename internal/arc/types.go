package arc

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// listEnvelope is the paged listing response: {"data": [...], "meta": {...}}.
type listEnvelope struct {
	Data []resource `json:"data"`
	Meta pageMeta   `json:"meta"`
}

type pageMeta struct {
	TotalPages int `json:"total-pages"`
}

// detailEnvelope is the per-grant response: {"data": {"attributes": {...}}}.
type detailEnvelope struct {
	Data resource `json:"data"`
}

type resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes grantAttributes `json:"attributes"`
}

// grantAttributes captures the attribute payload of both the listing and
// detail endpoints. Field names vary between endpoint versions, so both
// variants are declared and resolved with fallbacks at normalization time.
type grantAttributes struct {
	Code                    string           `json:"code"`
	SchemeName              string           `json:"scheme-name"`
	FundingCommencementYear *int             `json:"funding-commencement-year"`
	GrantStatus             string           `json:"grant-status"`
	FundingAtAnnouncement   *decimal.Decimal `json:"funding-at-announcement"`
	FundingCurrent          *decimal.Decimal `json:"funding-current"`
	// Listing endpoint names for the same amounts.
	AnnouncedFundingAmount *decimal.Decimal `json:"announced-funding-amount"`
	CurrentFundingAmount   *decimal.Decimal `json:"current-funding-amount"`

	AdministeringOrganisation             string `json:"administering-organisation"`
	CurrentAdminOrganisation              string `json:"current-admin-organisation"`
	AnnouncementAdministeringOrganisation string `json:"announcement-administering-organisation"`
	AnnouncementAdminOrganisation         string `json:"announcement-admin-organisation"`

	GrantSummary                  string `json:"grant-summary"`
	NationalInterestTestStatement string `json:"national-interest-test-statement"`

	FieldOfResearch        classificationList `json:"field-of-research"`
	PrimaryFieldOfResearch classificationList `json:"primary-field-of-research"`
	SocioEconomicObjective classificationList `json:"socio-economic-objective"`

	InvestigatorsCurrent        investigatorList `json:"investigators-current"`
	InvestigatorsAtAnnouncement investigatorList `json:"investigators-at-announcement"`
}

// funded reports whether any funding amount, across both endpoint field
// name variants, is a positive number.
func (a *grantAttributes) funded() bool {
	amounts := []*decimal.Decimal{
		a.FundingAtAnnouncement,
		a.FundingCurrent,
		a.AnnouncedFundingAmount,
		a.CurrentFundingAmount,
	}
	for _, amt := range amounts {
		if amt != nil && amt.IsPositive() {
			return true
		}
	}
	return false
}

// year returns the funding commencement year, with missing treated as 0.
func (a *grantAttributes) year() int {
	if a.FundingCommencementYear == nil {
		return 0
	}
	return *a.FundingCommencementYear
}

// wireClassification is one raw classification entry. Codes have been
// observed both as JSON strings and as bare numbers.
type wireClassification struct {
	Code      flexString `json:"code"`
	Name      string     `json:"name"`
	IsPrimary bool       `json:"isPrimary"`
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

// classificationList tolerates the three shapes the portal has shipped:
// a list of {code, name, isPrimary} objects, a legacy plain string holding
// a single name, or null. Anything else decodes to an empty list.
type classificationList []wireClassification

func (l *classificationList) UnmarshalJSON(data []byte) error {
	*l = nil

	var entries []wireClassification
	if err := json.Unmarshal(data, &entries); err == nil {
		*l = entries
		return nil
	}

	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		if legacy != "" {
			*l = classificationList{{Name: legacy, IsPrimary: true}}
		}
		return nil
	}

	return nil
}

type wireInvestigator struct {
	Title           string `json:"title"`
	FirstName       string `json:"firstName"`
	FamilyName      string `json:"familyName"`
	RoleName        string `json:"roleName"`
	RoleCode        string `json:"roleCode"`
	IsFellowship    *bool  `json:"isFellowship"`
	ORCIDIdentifier string `json:"orcidIdentifier"`
}

// investigatorList decodes investigator collections defensively: a non-list
// value yields an empty list rather than a decode failure.
type investigatorList []wireInvestigator

func (l *investigatorList) UnmarshalJSON(data []byte) error {
	*l = nil

	var entries []wireInvestigator
	if err := json.Unmarshal(data, &entries); err == nil {
		*l = entries
	}
	return nil
}
