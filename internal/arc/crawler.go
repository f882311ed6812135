package arc

import (
	"context"
	"log"
	"time"

	"github.com/tomw/arc-ci-ranker/internal/models"
)

// Crawler runs the full discover-then-fetch pipeline sequentially.
type Crawler struct {
	Client    *Client
	Discovery DiscoveryOptions

	// Sleep is the polite delay between successive detail fetches.
	// May be zero.
	Sleep time.Duration
}

// Run discovers candidate grants and fetches the detail record for each.
// A per-grant fetch failure is logged and skipped; only discovery failures
// abort the run. Returned records are in discovery order.
func (c *Crawler) Run(ctx context.Context) ([]models.GrantRecord, error) {
	ids, err := c.Client.DiscoverIDs(ctx, c.Discovery)
	if err != nil {
		return nil, err
	}

	records := make([]models.GrantRecord, 0, len(ids))
	for idx, id := range ids {
		attrs, err := c.Client.GrantDetail(ctx, id)
		if err != nil {
			log.Printf("[arc] error fetching %s: %v", id, err)
			continue
		}
		records = append(records, attrs.Record())

		if c.Sleep > 0 && idx < len(ids)-1 {
			select {
			case <-ctx.Done():
				return records, ctx.Err()
			case <-time.After(c.Sleep):
			}
		}
		if (idx+1)%50 == 0 {
			log.Printf("[arc] fetched %d/%d", idx+1, len(ids))
		}
	}

	log.Printf("[arc] crawl complete: %d/%d records processed", len(records), len(ids))
	return records, nil
}
