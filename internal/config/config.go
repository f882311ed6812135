package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from YAML with environment
// variable expansion and a handful of env overrides.
type Config struct {
	Port        string   `yaml:"port"`
	DataCSV     string   `yaml:"data_csv"`
	TopK        int      `yaml:"top_k"`
	CORSOrigins []string `yaml:"cors_origins"`
	AdminSecret string   `yaml:"admin_secret"`
	DatabaseURL string   `yaml:"database_url"`
	Crawl       Crawl    `yaml:"crawl"`
}

// Crawl configures the ARC crawl performed by the admin recrawl job and the
// crawler binary.
type Crawl struct {
	BaseURL     string `yaml:"base_url"`
	Scheme      string `yaml:"scheme"`
	PageSize    int    `yaml:"page_size"`
	MaxPages    int    `yaml:"max_pages"`
	SleepMillis int    `yaml:"sleep_ms"`
	YearFrom    int    `yaml:"year_from"`
	YearTo      int    `yaml:"year_to"`
}

// Sleep returns the polite inter-request delay.
func (c Crawl) Sleep() time.Duration {
	return time.Duration(c.SleepMillis) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:    "8080",
		DataCSV: "arc_discovery_projects.csv",
		TopK:    30,
		Crawl: Crawl{
			PageSize:    1000,
			SleepMillis: 100,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path skips
// the file and applies env overrides only. Environment variables inside
// the YAML content (e.g. ${ADMIN_SECRET}) are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATA_CSV"); v != "" {
		cfg.DataCSV = v
	}
	if v := os.Getenv("ADMIN_SECRET"); v != "" {
		cfg.AdminSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
}
