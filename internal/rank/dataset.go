package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomw/arc-ci-ranker/internal/export"
)

// longRow is one (investigator, classification code) pair of a record: the
// cross-product explosion of the row's CI list and FoR code list. All long
// rows of a record reference the same project code.
type longRow struct {
	CI      string
	ForCode string
	Code    string
}

// Dataset is the immutable in-memory form the query operations run over:
// the original table, its long-form explosion, and the classification name
// lookups. Build it once and share it read-only.
type Dataset struct {
	rows      []export.Row
	long      []longRow
	rowByCode map[string]*export.Row

	codeNames     map[string]string
	divisionNames map[string]string
	codeOrder     []string // first-seen order, for deterministic division naming
}

// NewDataset indexes the tabular rows. Blank investigators and blank codes
// are dropped from the long form, so a record with zero CIs contributes no
// long rows at all.
func NewDataset(rows []export.Row) *Dataset {
	d := &Dataset{
		rows:          rows,
		rowByCode:     make(map[string]*export.Row, len(rows)),
		codeNames:     make(map[string]string),
		divisionNames: make(map[string]string),
	}

	for i := range rows {
		row := &rows[i]
		if _, ok := d.rowByCode[row.Code]; !ok && row.Code != "" {
			d.rowByCode[row.Code] = row
		}

		for _, ci := range row.ChiefInvestigators {
			if ci == "" {
				continue
			}
			for _, code := range row.AllCodes {
				if code == "" {
					continue
				}
				d.long = append(d.long, longRow{CI: ci, ForCode: code, Code: row.Code})
			}
		}

		// Pair codes with names positionally; first-seen name wins.
		for j, code := range row.AllCodes {
			if j >= len(row.AllNames) {
				break
			}
			if _, ok := d.codeNames[code]; !ok {
				d.codeNames[code] = row.AllNames[j]
				d.codeOrder = append(d.codeOrder, code)
			}
		}
	}

	// Division labels borrow the first-seen name under each 2-digit prefix,
	// trimmed of any code-specific suffix.
	for _, code := range d.codeOrder {
		if len(code) < 2 {
			continue
		}
		division := code[:2]
		if _, ok := d.divisionNames[division]; !ok {
			name, _, _ := strings.Cut(d.codeNames[code], " — ")
			d.divisionNames[division] = name
		}
	}

	return d
}

// LoadCSV builds a dataset from a crawl CSV. Load failures are returned to
// the caller; there is no degraded empty-dataset fallback.
func LoadCSV(path string) (*Dataset, error) {
	rows, err := export.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return NewDataset(rows), nil
}

// Len returns the number of records in the table.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Option is a selectable classification code with a display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options lists the selectable classification codes: the specific codes
// present in the data and their broad 2-digit divisions.
type Options struct {
	Specific []Option `json:"specific"`
	Broad    []Option `json:"broad"`
}

// CodeOptions returns the filter options, sorted ascending by code. Labels
// are "{code} — {name}" when a name is known, else the bare code.
func (d *Dataset) CodeOptions() Options {
	opts := Options{
		Specific: make([]Option, 0, len(d.codeNames)),
		Broad:    make([]Option, 0, len(d.divisionNames)),
	}

	for code, name := range d.codeNames {
		opts.Specific = append(opts.Specific, Option{Value: code, Label: label(code, name)})
	}
	for code, name := range d.divisionNames {
		opts.Broad = append(opts.Broad, Option{Value: code, Label: label(code, name)})
	}

	sort.Slice(opts.Specific, func(i, j int) bool { return opts.Specific[i].Value < opts.Specific[j].Value })
	sort.Slice(opts.Broad, func(i, j int) bool { return opts.Broad[i].Value < opts.Broad[j].Value })
	return opts
}

func label(code, name string) string {
	if name == "" {
		return code
	}
	return code + " — " + name
}
