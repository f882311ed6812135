package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tomw/arc-ci-ranker/internal/export"
	"github.com/tomw/arc-ci-ranker/internal/models"
)

// Store persists crawled grants and serves them back as tabular rows.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const upsertGrantSQL = `
	INSERT INTO grants (
		code, scheme_name, funding_commencement_year, grant_status,
		funding_at_announcement, funding_current,
		administering_organisation, administering_organisation_announcement,
		summary, national_interest_test_statement,
		for_primary_codes, for_primary_names, for_all_codes, for_all_names,
		chief_investigators, chief_investigators_orcids,
		investigators_current, investigators_at_announcement
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (code) DO UPDATE SET
		scheme_name = EXCLUDED.scheme_name,
		funding_commencement_year = EXCLUDED.funding_commencement_year,
		grant_status = EXCLUDED.grant_status,
		funding_at_announcement = EXCLUDED.funding_at_announcement,
		funding_current = EXCLUDED.funding_current,
		administering_organisation = EXCLUDED.administering_organisation,
		administering_organisation_announcement = EXCLUDED.administering_organisation_announcement,
		summary = EXCLUDED.summary,
		national_interest_test_statement = EXCLUDED.national_interest_test_statement,
		for_primary_codes = EXCLUDED.for_primary_codes,
		for_primary_names = EXCLUDED.for_primary_names,
		for_all_codes = EXCLUDED.for_all_codes,
		for_all_names = EXCLUDED.for_all_names,
		chief_investigators = EXCLUDED.chief_investigators,
		chief_investigators_orcids = EXCLUDED.chief_investigators_orcids,
		investigators_current = EXCLUDED.investigators_current,
		investigators_at_announcement = EXCLUDED.investigators_at_announcement,
		updated_at = NOW()
`

// UpsertGrants writes crawled records keyed by grant code. Records without
// a code are skipped.
func (s *Store) UpsertGrants(ctx context.Context, records []models.GrantRecord) (int, error) {
	saved := 0
	for _, rec := range records {
		if rec.Code == "" {
			continue
		}

		row := export.ToRow(rec)
		invCurrent, err := json.Marshal(orEmptyInvestigators(rec.InvestigatorsCurrent))
		if err != nil {
			return saved, fmt.Errorf("marshaling investigators for %s: %w", rec.Code, err)
		}
		invAnnouncement, err := json.Marshal(orEmptyInvestigators(rec.InvestigatorsAnnouncement))
		if err != nil {
			return saved, fmt.Errorf("marshaling investigators for %s: %w", rec.Code, err)
		}

		_, err = s.pool.Exec(ctx, upsertGrantSQL,
			rec.Code, rec.SchemeName, rec.FundingCommencementYear, rec.GrantStatus,
			decimalArg(rec.FundingAtAnnouncement), decimalArg(rec.FundingCurrent),
			rec.AdministeringOrganisation, rec.AdministeringOrganisationAnnouncement,
			rec.Summary, rec.NationalInterestTestStatement,
			orEmpty(row.PrimaryCodes), orEmpty(row.PrimaryNames),
			orEmpty(row.AllCodes), orEmpty(row.AllNames),
			orEmpty(row.ChiefInvestigators), orEmpty(row.ChiefInvestigatorORCIDs),
			invCurrent, invAnnouncement,
		)
		if err != nil {
			return saved, fmt.Errorf("upserting grant %s: %w", rec.Code, err)
		}
		saved++
	}
	return saved, nil
}

const selectRowsSQL = `
	SELECT code, funding_commencement_year, grant_status,
		funding_at_announcement::text, funding_current::text,
		administering_organisation,
		for_primary_codes, for_primary_names, for_all_codes, for_all_names,
		chief_investigators, chief_investigators_orcids
	FROM grants
	ORDER BY code
`

// LoadRows reads the full grant table back in tabular form, so the query
// service can boot from Postgres instead of a crawl CSV.
func (s *Store) LoadRows(ctx context.Context) ([]export.Row, error) {
	rows, err := s.pool.Query(ctx, selectRowsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	defer rows.Close()

	var out []export.Row
	for rows.Next() {
		var (
			row                   export.Row
			announcement, current *string
		)
		err := rows.Scan(
			&row.Code, &row.FundingCommencementYear, &row.GrantStatus,
			&announcement, &current,
			&row.AdministeringOrganisation,
			&row.PrimaryCodes, &row.PrimaryNames, &row.AllCodes, &row.AllNames,
			&row.ChiefInvestigators, &row.ChiefInvestigatorORCIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning grant row: %w", err)
		}

		if row.FundingAtAnnouncement, err = parseDecimalColumn(announcement); err != nil {
			return nil, fmt.Errorf("grant %s: %w", row.Code, err)
		}
		if row.FundingCurrent, err = parseDecimalColumn(current); err != nil {
			return nil, fmt.Errorf("grant %s: %w", row.Code, err)
		}

		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}
	return out, nil
}

// CountGrants returns the number of persisted grants.
func (s *Store) CountGrants(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM grants").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting grants: %w", err)
	}
	return count, nil
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimalColumn(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid funding amount %q: %w", *s, err)
	}
	return &d, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func orEmptyInvestigators(list []models.Investigator) []models.Investigator {
	if list == nil {
		return []models.Investigator{}
	}
	return list
}
