package rank

import (
	"sort"
	"strings"
)

// GrantPageURL is the public detail page prefix for a project code.
const GrantPageURL = "https://dataportal.arc.gov.au/NCGP/Web/Grant/Grant/"

// Entry is one ranked investigator.
type Entry struct {
	Investigator string `json:"investigator"`
	ProjectCount int    `json:"project_count"`
}

// Result is a ranking. IsOverall marks the unfiltered whole-dataset case.
type Result struct {
	Entries   []Entry `json:"ranked"`
	IsOverall bool    `json:"is_overall"`
}

// Rank counts distinct funded projects per chief investigator.
//
// With no selectors it ranks over the whole table, exploded by investigator
// only. With selectors it filters the long form, exact codes first and then
// prefixes (supplying both narrows sequentially), and deduplicates
// (investigator, project) pairs before counting, so a project matching
// under several classification codes counts once.
//
// Ties are broken by investigator name ascending. topK <= 0 means no limit.
func (d *Dataset) Rank(selectedCodes, selectedPrefixes []string, topK int) Result {
	codes := cleanFilters(selectedCodes)
	prefixes := cleanFilters(selectedPrefixes)

	if len(codes) == 0 && len(prefixes) == 0 {
		return Result{Entries: d.overallEntries(topK), IsOverall: true}
	}

	projects := make(map[string]map[string]struct{})
	for _, lr := range d.filterLong(codes, prefixes) {
		byCI, ok := projects[lr.CI]
		if !ok {
			byCI = make(map[string]struct{})
			projects[lr.CI] = byCI
		}
		byCI[lr.Code] = struct{}{}
	}

	return Result{Entries: toEntries(projects, topK)}
}

// overallEntries explodes the original table by investigator only and
// counts distinct project codes across the unfiltered dataset.
func (d *Dataset) overallEntries(topK int) []Entry {
	projects := make(map[string]map[string]struct{})
	for i := range d.rows {
		row := &d.rows[i]
		for _, ci := range row.ChiefInvestigators {
			if ci == "" {
				continue
			}
			byCI, ok := projects[ci]
			if !ok {
				byCI = make(map[string]struct{})
				projects[ci] = byCI
			}
			byCI[row.Code] = struct{}{}
		}
	}
	return toEntries(projects, topK)
}

// filterLong applies the active selectors to the long form. Each non-empty
// selector narrows the already-filtered rows further.
func (d *Dataset) filterLong(codes, prefixes []string) []longRow {
	rows := d.long

	if len(codes) > 0 {
		selected := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			selected[c] = struct{}{}
		}
		var kept []longRow
		for _, lr := range rows {
			if _, ok := selected[lr.ForCode]; ok {
				kept = append(kept, lr)
			}
		}
		rows = kept
	}

	if len(prefixes) > 0 {
		var kept []longRow
		for _, lr := range rows {
			for _, p := range prefixes {
				if strings.HasPrefix(lr.ForCode, p) {
					kept = append(kept, lr)
					break
				}
			}
		}
		rows = kept
	}

	return rows
}

func toEntries(projects map[string]map[string]struct{}, topK int) []Entry {
	entries := make([]Entry, 0, len(projects))
	for ci, codes := range projects {
		entries = append(entries, Entry{Investigator: ci, ProjectCount: len(codes)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ProjectCount != entries[j].ProjectCount {
			return entries[i].ProjectCount > entries[j].ProjectCount
		}
		return entries[i].Investigator < entries[j].Investigator
	})

	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	return entries
}

func cleanFilters(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
