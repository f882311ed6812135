package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/tomw/arc-ci-ranker/internal/api"
	"github.com/tomw/arc-ci-ranker/internal/config"
	"github.com/tomw/arc-ci-ranker/internal/db"
	"github.com/tomw/arc-ci-ranker/internal/rank"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	var store *db.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := db.ApplyMigrations(ctx, pool); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		store = db.NewStore(pool)
	}

	dataset, err := loadDataset(ctx, cfg, store)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded %d grant records", dataset.Len())

	srv := api.NewServer(cfg, dataset, store)
	log.Printf("Server starting on port %s...", cfg.Port)
	if err := srv.Start(cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// loadDataset prefers the crawl CSV; with no CSV configured it falls back
// to the database. Either way a load failure is fatal; the server never
// starts over a silently empty dataset.
func loadDataset(ctx context.Context, cfg config.Config, store *db.Store) (*rank.Dataset, error) {
	if cfg.DataCSV != "" {
		return rank.LoadCSV(cfg.DataCSV)
	}
	if store == nil {
		return nil, fmt.Errorf("no data source configured: set data_csv or database_url")
	}
	rows, err := store.LoadRows(ctx)
	if err != nil {
		return nil, err
	}
	return rank.NewDataset(rows), nil
}
