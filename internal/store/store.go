// Package store is the only component that touches the hosted Postgres
// table. The table is the system of record; nothing in-process caches it.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"groundwatch/internal/models"
	"groundwatch/internal/observability"
)

// Store wraps database access helpers for the groundwater table.
type Store struct {
	pool      *pgxpool.Pool
	table     string
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Store backed by a pgx pool and verifies connectivity, so
// misconfigured credentials fail at startup instead of on the first cycle.
func New(ctx context.Context, databaseURL, table string, batchSize int, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, table: table, batchSize: batchSize, logger: logger, metrics: metrics}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ReplaceAll clears the table and bulk-inserts the given records in chunks.
// A failed chunk is logged and counted; remaining chunks still run. An empty
// input still clears the table, matching full-replace semantics. The clear
// and the inserts are separate network calls, not one transaction: a crash
// in between leaves the table empty until the next successful cycle.
func (s *Store) ReplaceAll(ctx context.Context, records []models.GroundwaterRecord) (models.WriteReport, error) {
	report := models.WriteReport{RecordsRequested: len(records)}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		s.metrics.StoreErrors.Inc()
		return report, fmt.Errorf("clear %s: %w", s.table, err)
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s
    (state, district, station_code, station_name, latitude, longitude, well_depth, data_value, data_time, unit, well_type, aquifer_type, station_status, fetched_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())`, s.table)

	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		chunk := records[start:end]

		if err := s.insertChunk(ctx, insertSQL, chunk); err != nil {
			report.BatchesFailed++
			s.metrics.StoreErrors.Inc()
			s.logger.Error("insert batch failed",
				"from", start,
				"size", len(chunk),
				"error", err,
			)
			continue
		}
		report.RecordsWritten += len(chunk)
	}

	return report, nil
}

func (s *Store) insertChunk(ctx context.Context, insertSQL string, chunk []models.GroundwaterRecord) error {
	batch := &pgx.Batch{}
	for _, r := range chunk {
		batch.Queue(insertSQL,
			r.State, r.District, r.StationCode, r.StationName,
			r.Latitude, r.Longitude, r.WellDepth, r.DataValue, r.DataTime,
			r.Unit, r.WellType, r.AquiferType, r.StationStatus,
		)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range chunk {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListRecords returns the full current row set ordered by district and
// station code.
func (s *Store) ListRecords(ctx context.Context) ([]models.GroundwaterRecord, error) {
	query := fmt.Sprintf(`
    SELECT id, state, district, station_code, station_name, latitude, longitude, well_depth, data_value, data_time, unit, well_type, aquifer_type, station_status
    FROM %s
    ORDER BY district, station_code`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.GroundwaterRecord, 0)
	for rows.Next() {
		var r models.GroundwaterRecord
		if err := rows.Scan(
			&r.ID,
			&r.State,
			&r.District,
			&r.StationCode,
			&r.StationName,
			&r.Latitude,
			&r.Longitude,
			&r.WellDepth,
			&r.DataValue,
			&r.DataTime,
			&r.Unit,
			&r.WellType,
			&r.AquiferType,
			&r.StationStatus,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Migrate creates the groundwater table and its district index when absent.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id             BIGSERIAL PRIMARY KEY,
    state          TEXT NOT NULL,
    district       TEXT NOT NULL,
    station_code   TEXT NOT NULL DEFAULT '',
    station_name   TEXT NOT NULL DEFAULT '',
    latitude       DOUBLE PRECISION NOT NULL,
    longitude      DOUBLE PRECISION NOT NULL,
    well_depth     DOUBLE PRECISION NOT NULL,
    data_value     DOUBLE PRECISION,
    data_time      TIMESTAMPTZ,
    unit           TEXT NOT NULL DEFAULT '',
    well_type      TEXT NOT NULL DEFAULT '',
    aquifer_type   TEXT NOT NULL DEFAULT '',
    station_status TEXT NOT NULL DEFAULT '',
    fetched_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_district_idx ON %s (district)`, s.table, s.table)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index on %s: %w", s.table, err)
	}
	return nil
}
