package arc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tomw/arc-ci-ranker/internal/models"
)

// Record normalizes raw attributes into a GrantRecord. Missing optional
// fields stay absent; nothing is fabricated.
func (a *grantAttributes) Record() models.GrantRecord {
	return models.GrantRecord{
		Code:                    a.Code,
		SchemeName:              a.SchemeName,
		FundingCommencementYear: a.FundingCommencementYear,
		GrantStatus:             a.GrantStatus,
		FundingAtAnnouncement:   a.FundingAtAnnouncement,
		FundingCurrent:          a.FundingCurrent,
		AdministeringOrganisation: firstNonEmpty(
			a.AdministeringOrganisation, a.CurrentAdminOrganisation,
		),
		AdministeringOrganisationAnnouncement: firstNonEmpty(
			a.AnnouncementAdministeringOrganisation, a.AnnouncementAdminOrganisation,
		),
		Summary:                       htmlToText(a.GrantSummary),
		NationalInterestTestStatement: htmlToText(a.NationalInterestTestStatement),
		FieldOfResearch:               a.fieldOfResearch(),
		SocioEconomicObjective:        toClassifications(a.SocioEconomicObjective),
		InvestigatorsCurrent:          toInvestigators(a.InvestigatorsCurrent),
		InvestigatorsAnnouncement:     toInvestigators(a.InvestigatorsAtAnnouncement),
	}
}

// fieldOfResearch resolves the classification list with the detail-endpoint
// field preferred over the legacy primary-only field.
func (a *grantAttributes) fieldOfResearch() []models.FoRClassification {
	if len(a.FieldOfResearch) > 0 {
		return toClassifications(a.FieldOfResearch)
	}
	return toClassifications(a.PrimaryFieldOfResearch)
}

func toClassifications(list classificationList) []models.FoRClassification {
	var out []models.FoRClassification
	for _, item := range list {
		out = append(out, models.FoRClassification{
			Code:      string(item.Code),
			Name:      item.Name,
			IsPrimary: item.IsPrimary,
		})
	}
	return out
}

func toInvestigators(list investigatorList) []models.Investigator {
	var out []models.Investigator
	for _, item := range list {
		out = append(out, models.Investigator{
			Title:        item.Title,
			FirstName:    item.FirstName,
			FamilyName:   item.FamilyName,
			RoleName:     item.RoleName,
			RoleCode:     item.RoleCode,
			IsFellowship: item.IsFellowship,
			ORCID:        strings.TrimSpace(item.ORCIDIdentifier),
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// htmlToText strips markup from portal text fields and collapses
// whitespace. Falls back to the original string if parsing fails.
func htmlToText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeSpace(html)
	}
	return normalizeSpace(doc.Text())
}

// normalizeSpace collapses runs of whitespace into single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
