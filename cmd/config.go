package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/praetorian-inc/approles/pkg/graphdb"
)

type config struct {
	TenantID          string
	Output            string
	Format            string
	PageSize          int32
	MenuPageSize      int
	Timeout           time.Duration
	RequestsPerSecond float64
	Retries           uint64
	NonInteractive    bool
	Neo4j             graphdb.Config
}

var defaults = config{
	Output:            "approles-output",
	Format:            "csv",
	PageSize:          999,
	MenuPageSize:      10,
	Timeout:           30 * time.Second,
	RequestsPerSecond: 10,
	Retries:           3,
	Neo4j: graphdb.Config{
		URI:      "bolt://localhost:7687",
		Username: "neo4j",
	},
}

// loadConfig reads the merged flag, environment and file settings
func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		TenantID:          v.GetString("tenant-id"),
		Output:            v.GetString("output"),
		Format:            v.GetString("format"),
		PageSize:          v.GetInt32("page-size"),
		MenuPageSize:      v.GetInt("menu-page-size"),
		Timeout:           v.GetDuration("timeout"),
		RequestsPerSecond: v.GetFloat64("rps"),
		Retries:           v.GetUint64("retries"),
		NonInteractive:    v.GetBool("non-interactive"),
		Neo4j: graphdb.Config{
			URI:      v.GetString("neo4j-uri"),
			Username: v.GetString("neo4j-user"),
			Password: v.GetString("neo4j-password"),
		},
	}

	switch {
	case cfg.Output == "":
		return cfg, fmt.Errorf("output directory must not be empty")
	case cfg.PageSize < 1 || cfg.PageSize > 999:
		return cfg, fmt.Errorf("page-size must be between 1 and 999, got %d", cfg.PageSize)
	case cfg.MenuPageSize < 1:
		return cfg, fmt.Errorf("menu-page-size must be at least 1, got %d", cfg.MenuPageSize)
	case cfg.Timeout <= 0:
		return cfg, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	case cfg.RequestsPerSecond <= 0:
		return cfg, fmt.Errorf("rps must be positive, got %g", cfg.RequestsPerSecond)
	}
	return cfg, nil
}
