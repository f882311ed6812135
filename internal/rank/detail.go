package rank

import (
	"sort"
	"strings"

	"github.com/tomw/arc-ci-ranker/internal/export"
)

// Project is one funded project of an investigator, annotated for display.
type Project struct {
	Code                  string `json:"code"`
	Year                  *int   `json:"year"`
	Organisation          string `json:"organisation"`
	PrimaryClassification string `json:"primary_classification"`
	URL                   string `json:"url"`
}

// DetailResult lists every distinct project of one investigator under the
// active classification filter.
type DetailResult struct {
	Investigator string    `json:"investigator"`
	Projects     []Project `json:"projects"`
}

// Detail returns the investigator's distinct projects under the same filter
// semantics as Rank, sorted by commencement year descending (missing year
// last) then project code ascending.
//
// Name matching is asymmetric: with no filter active the name is matched
// by substring containment against the record's joined CI text; under a
// filter it is matched by exact equality against the exploded investigator
// name.
func (d *Dataset) Detail(name string, selectedCodes, selectedPrefixes []string) DetailResult {
	codes := cleanFilters(selectedCodes)
	prefixes := cleanFilters(selectedPrefixes)

	seen := make(map[string]struct{})
	var projectCodes []string

	if len(codes) == 0 && len(prefixes) == 0 {
		for i := range d.rows {
			row := &d.rows[i]
			if row.Code == "" {
				continue
			}
			if !strings.Contains(export.JoinMulti(row.ChiefInvestigators), name) {
				continue
			}
			if _, ok := seen[row.Code]; !ok {
				seen[row.Code] = struct{}{}
				projectCodes = append(projectCodes, row.Code)
			}
		}
	} else {
		for _, lr := range d.filterLong(codes, prefixes) {
			if lr.CI != name || lr.Code == "" {
				continue
			}
			if _, ok := seen[lr.Code]; !ok {
				seen[lr.Code] = struct{}{}
				projectCodes = append(projectCodes, lr.Code)
			}
		}
	}

	projects := make([]Project, 0, len(projectCodes))
	for _, code := range projectCodes {
		row, ok := d.rowByCode[code]
		if !ok {
			continue
		}
		projects = append(projects, Project{
			Code:                  code,
			Year:                  row.FundingCommencementYear,
			Organisation:          row.AdministeringOrganisation,
			PrimaryClassification: export.JoinMulti(row.PrimaryNames),
			URL:                   GrantPageURL + code,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		yi, yj := yearOrZero(projects[i].Year), yearOrZero(projects[j].Year)
		if yi != yj {
			return yi > yj
		}
		return projects[i].Code < projects[j].Code
	})

	return DetailResult{Investigator: name, Projects: projects}
}

func yearOrZero(year *int) int {
	if year == nil {
		return 0
	}
	return *year
}
