package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"epl_v4/etl/internal/metrics"
	"epl_v4/etl/internal/normalize"
)

// WarehouseStore writes row sets into a Postgres analytical warehouse.
type WarehouseStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWarehouseStore creates a connection pool against the configured
// warehouse and verifies connectivity.
func NewWarehouseStore(ctx context.Context, cfg Config, logger zerolog.Logger) (*WarehouseStore, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse warehouse config: %w", err)
	}

	// A batch loader needs few connections.
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to warehouse")

	return &WarehouseStore{pool: pool, logger: logger}, nil
}

func (s *WarehouseStore) pgType(k columnKind) string {
	switch k {
	case kindBigint:
		return "BIGINT"
	case kindDouble:
		return "DOUBLE PRECISION"
	case kindBool:
		return "BOOLEAN"
	}
	return "TEXT"
}

// Replace drops and recreates the table inside one transaction, then bulk
// loads the rows with COPY. A row set with no columns only drops the table.
func (s *WarehouseStore) Replace(ctx context.Context, table string, rows *normalize.RowSet) error {
	if err := s.replace(ctx, table, rows); err != nil {
		metrics.RecordStoreWrite(table, "error", 0)
		return err
	}
	metrics.RecordStoreWrite(table, "success", rows.Len())
	s.logger.Info().Str("table", table).Int("rows", rows.Len()).Msg("Table replaced")
	return nil
}

func (s *WarehouseStore) replace(ctx context.Context, table string, rows *normalize.RowSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	if len(rows.Columns) == 0 {
		return tx.Commit(ctx)
	}

	cols := make([]string, len(rows.Columns))
	for i, col := range rows.Columns {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(col), s.pgType(inferKind(rows.Rows, col)))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	copyRows := make([][]interface{}, len(rows.Rows))
	for i, row := range rows.Rows {
		vals := make([]interface{}, len(rows.Columns))
		for j, col := range rows.Columns {
			vals[j] = sqlValue(row[col])
		}
		copyRows[i] = vals
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, rows.Columns, pgx.CopyFromRows(copyRows)); err != nil {
		return fmt.Errorf("failed to copy rows into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// Health checks if the warehouse is reachable.
func (s *WarehouseStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("warehouse health check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *WarehouseStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info().Msg("Warehouse connection pool closed")
	}
}
