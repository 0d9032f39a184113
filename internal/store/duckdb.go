package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"

	"epl_v4/etl/internal/metrics"
	"epl_v4/etl/internal/normalize"
)

// DuckStore writes row sets into an embedded DuckDB database file.
type DuckStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewDuckStore opens (creating if needed) the DuckDB database at path.
func NewDuckStore(ctx context.Context, path string, logger zerolog.Logger) (*DuckStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	logger.Info().Str("path", path).Msg("Connected to DuckDB")
	return &DuckStore{db: db, logger: logger}, nil
}

func (s *DuckStore) duckType(k columnKind) string {
	switch k {
	case kindBigint:
		return "BIGINT"
	case kindDouble:
		return "DOUBLE"
	case kindBool:
		return "BOOLEAN"
	}
	return "VARCHAR"
}

// Replace recreates the table from the row set. A row set with no columns
// only drops the existing table.
func (s *DuckStore) Replace(ctx context.Context, table string, rows *normalize.RowSet) error {
	if err := s.replace(ctx, table, rows); err != nil {
		metrics.RecordStoreWrite(table, "error", 0)
		return err
	}
	metrics.RecordStoreWrite(table, "success", rows.Len())
	s.logger.Info().Str("table", table).Int("rows", rows.Len()).Msg("Table replaced")
	return nil
}

func (s *DuckStore) replace(ctx context.Context, table string, rows *normalize.RowSet) error {
	if len(rows.Columns) == 0 {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		return nil
	}

	cols := make([]string, len(rows.Columns))
	placeholders := make([]string, len(rows.Columns))
	for i, col := range rows.Columns {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(col), s.duckType(inferKind(rows.Rows, col)))
		placeholders[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows.Rows {
		args := make([]interface{}, len(rows.Columns))
		for i, col := range rows.Columns {
			args[i] = sqlValue(row[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// Health checks the connection.
func (s *DuckStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("duckdb health check failed: %w", err)
	}
	return nil
}

// Close closes the database file.
func (s *DuckStore) Close() {
	if s.db != nil {
		s.db.Close()
		s.logger.Info().Msg("DuckDB connection closed")
	}
}
