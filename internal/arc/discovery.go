package arc

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DefaultScheme is the grant scheme this pipeline targets.
const DefaultScheme = "Discovery Projects"

// DiscoveryOptions control the paginated listing walk.
type DiscoveryOptions struct {
	Scheme   string // target scheme name, matched case-insensitively
	PageSize int
	MaxPages int // 0 means no cap
	YearFrom int // 0 means unbounded
	YearTo   int // 0 means unbounded
}

func (o *DiscoveryOptions) scheme() string {
	if o.Scheme == "" {
		return DefaultScheme
	}
	return o.Scheme
}

// matches applies the inclusion predicates: scheme equality, year bounds
// (a missing year counts as 0, so it is excluded whenever YearFrom is set)
// and the nonzero-funding requirement.
func (o *DiscoveryOptions) matches(a *grantAttributes) bool {
	scheme := strings.ToLower(strings.TrimSpace(a.SchemeName))
	if scheme != strings.ToLower(o.scheme()) {
		return false
	}
	if o.YearFrom != 0 && a.year() < o.YearFrom {
		return false
	}
	if o.YearTo != 0 && a.year() > o.YearTo {
		return false
	}
	return a.funded()
}

// DiscoverIDs walks the listing endpoint and collects the identifiers of
// matching funded grants. The walk stops on an empty page, when the page
// number exceeds the total-pages reported by the first page, or when the
// configured page cap is reached. A failed page fetch aborts discovery.
func (c *Client) DiscoverIDs(ctx context.Context, opts DiscoveryOptions) ([]string, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	var (
		ids        []string
		totalPages int
	)

	for page := 1; ; page++ {
		if opts.MaxPages > 0 && page > opts.MaxPages {
			break
		}

		env, err := c.ListPage(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("discovery aborted: %w", err)
		}
		if totalPages == 0 {
			totalPages = env.Meta.TotalPages
		}
		if len(env.Data) == 0 {
			break
		}

		for _, item := range env.Data {
			if opts.matches(&item.Attributes) {
				ids = append(ids, item.ID)
			}
		}

		if totalPages > 0 && page+1 > totalPages {
			break
		}
	}

	log.Printf("[arc] discovered %d funded %s grants", len(ids), opts.scheme())
	return ids, nil
}
