// Package store persists tabular row sets with create-or-replace semantics.
// The concrete store is selected once at configuration-resolution time.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"epl_v4/etl/internal/normalize"
)

// Store writes row sets into named tables, fully superseding prior contents.
type Store interface {
	// Replace drops any existing table of that name and loads the rows.
	Replace(ctx context.Context, table string, rows *normalize.RowSet) error
	// Health checks connectivity.
	Health(ctx context.Context) error
	// Close releases the underlying connection. Safe to call once.
	Close()
}

// Config describes the target store.
type Config struct {
	Kind string // "duckdb" or "warehouse"

	// DuckDB
	Path string

	// Warehouse (Postgres)
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// New selects and connects the configured store implementation.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "duckdb":
		return NewDuckStore(ctx, cfg.Path, logger)
	case "warehouse", "postgres":
		return NewWarehouseStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported store kind: %q", cfg.Kind)
	}
}

// columnKind is the inferred storage class of a column.
type columnKind int

const (
	kindText columnKind = iota
	kindBigint
	kindDouble
	kindBool
)

// inferKind picks a column's storage class from its first non-nil value.
// JSON numbers arrive as float64; anything composite is stored as JSON text.
func inferKind(rows []normalize.Row, col string) columnKind {
	for _, row := range rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int64:
			return kindBigint
		case float64:
			return kindDouble
		case bool:
			return kindBool
		default:
			return kindText
		}
	}
	return kindText
}

// sqlValue converts a cell into a driver-friendly value. Composite values
// (arrays the normalizer kept verbatim) become JSON text.
func sqlValue(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// quoteIdent quotes a table or column identifier. Flattened column names
// contain dots ("area.name"), so quoting is mandatory.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
