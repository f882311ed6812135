package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/tomw/arc-ci-ranker/internal/arc"
	"github.com/tomw/arc-ci-ranker/internal/db"
	"github.com/tomw/arc-ci-ranker/internal/export"
)

func main() {
	var (
		outCSV      = flag.String("out-csv", "arc_discovery_projects.csv", "Output CSV path")
		outJSON     = flag.String("out-json", "arc_discovery_projects.json", "Output JSON path")
		baseURL     = flag.String("base-url", arc.DefaultBaseURL, "ARC grants API base URL")
		scheme      = flag.String("scheme", arc.DefaultScheme, "Target scheme name")
		maxPages    = flag.Int("max-pages", 0, "Limit number of listing pages to scan (0 = all)")
		pageSize    = flag.Int("page-size", 1000, "Page size for the listing endpoint")
		sleep       = flag.Duration("sleep", 100*time.Millisecond, "Delay between detail requests")
		yearFrom    = flag.Int("year-from", 0, "Only include grants with funding-commencement-year >= this year")
		yearTo      = flag.Int("year-to", 0, "Only include grants with funding-commencement-year <= this year")
		databaseURL = flag.String("database-url", "", "Optional Postgres URL; crawled grants are upserted when set")
	)
	flag.Parse()

	ctx := context.Background()

	crawler := &arc.Crawler{
		Client: arc.NewClient(*baseURL),
		Discovery: arc.DiscoveryOptions{
			Scheme:   *scheme,
			PageSize: *pageSize,
			MaxPages: *maxPages,
			YearFrom: *yearFrom,
			YearTo:   *yearTo,
		},
		Sleep: *sleep,
	}

	records, err := crawler.Run(ctx)
	if err != nil {
		log.Fatalf("Crawl failed: %v", err)
	}

	rows := export.Rows(records)
	if err := export.WriteCSVFile(*outCSV, rows); err != nil {
		log.Fatalf("CSV export failed: %v", err)
	}
	if err := export.WriteJSONFile(*outJSON, records); err != nil {
		log.Fatalf("JSON export failed: %v", err)
	}
	log.Printf("Wrote %d records to %s and %s", len(records), *outCSV, *outJSON)

	if *databaseURL != "" {
		pool, err := db.Connect(ctx, *databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := db.ApplyMigrations(ctx, pool); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		saved, err := db.NewStore(pool).UpsertGrants(ctx, records)
		if err != nil {
			log.Fatalf("Database upsert failed: %v", err)
		}
		log.Printf("Upserted %d grants", saved)
	}
}
