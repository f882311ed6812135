package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tomw/arc-ci-ranker/internal/models"
)

// MultiValueSeparator joins multi-valued fields in the tabular form.
const MultiValueSeparator = "; "

// csvHeader is the fixed column set of the crawl output. Order matters:
// downstream consumers address columns by name but validate the full set.
var csvHeader = []string{
	"code",
	"funding_commencement_year",
	"grant_status",
	"funding_at_announcement",
	"funding_current",
	"administering_organisation",
	"for_primary_codes",
	"for_primary_names",
	"for_all_codes",
	"for_all_names",
	"chief_investigators",
	"chief_investigators_orcids",
}

// Row is one grant flattened into the tabular form. Multi-valued fields
// keep the source-record ordering; they are only joined with the separator
// at the serialization boundary.
type Row struct {
	Code                      string
	FundingCommencementYear   *int
	GrantStatus               string
	FundingAtAnnouncement     *decimal.Decimal
	FundingCurrent            *decimal.Decimal
	AdministeringOrganisation string
	PrimaryCodes              []string
	PrimaryNames              []string
	AllCodes                  []string
	AllNames                  []string
	ChiefInvestigators        []string
	ChiefInvestigatorORCIDs   []string
}

// ToRow flattens a record. Classification and investigator ordering is
// preserved as-is; no sorting.
func ToRow(rec models.GrantRecord) Row {
	row := Row{
		Code:                      rec.Code,
		FundingCommencementYear:   rec.FundingCommencementYear,
		GrantStatus:               rec.GrantStatus,
		FundingAtAnnouncement:     rec.FundingAtAnnouncement,
		FundingCurrent:            rec.FundingCurrent,
		AdministeringOrganisation: rec.AdministeringOrganisation,
	}

	for _, c := range rec.FieldOfResearch {
		if c.Code != "" {
			row.AllCodes = append(row.AllCodes, c.Code)
		}
		if c.Name != "" {
			row.AllNames = append(row.AllNames, c.Name)
		}
		if c.IsPrimary {
			if c.Code != "" {
				row.PrimaryCodes = append(row.PrimaryCodes, c.Code)
			}
			if c.Name != "" {
				row.PrimaryNames = append(row.PrimaryNames, c.Name)
			}
		}
	}

	for _, ci := range rec.ChiefInvestigators() {
		row.ChiefInvestigators = append(row.ChiefInvestigators, ci.FullName())
		if orcid := strings.TrimSpace(ci.ORCID); orcid != "" {
			row.ChiefInvestigatorORCIDs = append(row.ChiefInvestigatorORCIDs, orcid)
		}
	}

	return row
}

// Rows flattens a full record set in order.
func Rows(records []models.GrantRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ToRow(rec))
	}
	return rows
}

// WriteCSV serializes rows with the fixed header. Absent values render as
// empty strings.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Code,
			formatYear(row.FundingCommencementYear),
			row.GrantStatus,
			formatDecimal(row.FundingAtAnnouncement),
			formatDecimal(row.FundingCurrent),
			row.AdministeringOrganisation,
			JoinMulti(row.PrimaryCodes),
			JoinMulti(row.PrimaryNames),
			JoinMulti(row.AllCodes),
			JoinMulti(row.AllNames),
			JoinMulti(row.ChiefInvestigators),
			JoinMulti(row.ChiefInvestigatorORCIDs),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", row.Code, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the tabular form to path.
func WriteCSVFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows); err != nil {
		return err
	}
	return f.Close()
}

// ReadCSV parses the tabular form back into rows. The header must match
// the expected schema exactly; malformed values fail with the offending
// row number rather than surfacing later as bad aggregates.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected CSV header: got %d columns, want %d", len(header), len(csvHeader))
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected CSV column %d: got %q, want %q", i, header[i], col)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		row := Row{
			Code:                      record[0],
			GrantStatus:               record[2],
			AdministeringOrganisation: record[5],
			PrimaryCodes:              SplitMulti(record[6]),
			PrimaryNames:              SplitMulti(record[7]),
			AllCodes:                  SplitMulti(record[8]),
			AllNames:                  SplitMulti(record[9]),
			ChiefInvestigators:        SplitMulti(record[10]),
			ChiefInvestigatorORCIDs:   SplitMulti(record[11]),
		}

		if row.FundingCommencementYear, err = parseYear(record[1]); err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		if row.FundingAtAnnouncement, err = parseDecimal(record[3]); err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		if row.FundingCurrent, err = parseDecimal(record[4]); err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// ReadCSVFile loads the tabular form from path. A missing or malformed
// file is fatal to the caller; no partial load is attempted.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}

// JoinMulti joins a multi-valued field for the tabular form.
func JoinMulti(values []string) string {
	return strings.Join(values, MultiValueSeparator)
}

// SplitMulti splits a joined multi-valued field, trimming entries and
// dropping blanks.
func SplitMulti(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatYear(year *int) string {
	if year == nil {
		return ""
	}
	return strconv.Itoa(*year)
}

func parseYear(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid funding_commencement_year %q", s)
	}
	return &year, nil
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid funding amount %q", s)
	}
	return &d, nil
}
