// Package sqlstore persists sensor readings and answers "latest reading per
// unit" queries over SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	unit_id           TEXT NOT NULL,
	recorded_at       TIMESTAMP NOT NULL,
	rainfall_mm_hr    DOUBLE PRECISION NOT NULL,
	drainage_level_cm DOUBLE PRECISION NOT NULL,
	flow_rate_lps     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (unit_id, recorded_at)
)`

const upsertReading = `
INSERT INTO sensor_readings (unit_id, recorded_at, rainfall_mm_hr, drainage_level_cm, flow_rate_lps)
VALUES (:unit_id, :recorded_at, :rainfall_mm_hr, :drainage_level_cm, :flow_rate_lps)
ON CONFLICT (unit_id, recorded_at) DO UPDATE SET
	rainfall_mm_hr = excluded.rainfall_mm_hr,
	drainage_level_cm = excluded.drainage_level_cm,
	flow_rate_lps = excluded.flow_rate_lps`

const selectLatestForUnit = `
SELECT unit_id, recorded_at, rainfall_mm_hr, drainage_level_cm, flow_rate_lps
FROM sensor_readings
WHERE unit_id = ?
ORDER BY recorded_at DESC
LIMIT 1`

const selectLatestPerUnit = `
SELECT r.unit_id, r.recorded_at, r.rainfall_mm_hr, r.drainage_level_cm, r.flow_rate_lps
FROM sensor_readings r
JOIN (
	SELECT unit_id, MAX(recorded_at) AS recorded_at
	FROM sensor_readings
	GROUP BY unit_id
) latest ON latest.unit_id = r.unit_id AND latest.recorded_at = r.recorded_at
ORDER BY r.unit_id`

// Store is a reading store backed by database/sql through sqlx.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and creates the schema if needed.
// driver is "sqlite3" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveReadings upserts readings in a single transaction. A reading with the
// same unit and timestamp as a stored one replaces its values.
func (s *Store) SaveReadings(ctx context.Context, readings []domain.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareNamedContext(ctx, upsertReading)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		r.Timestamp = r.Timestamp.UTC().Truncate(time.Microsecond)
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return fmt.Errorf("upsert reading for %s at %s: %w", r.UnitID, r.Timestamp.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings: %w", err)
	}
	return nil
}

// LatestReading returns the most recent reading for a unit, or
// domain.ErrNotFound when the unit has none.
func (s *Store) LatestReading(ctx context.Context, unitID string) (domain.SensorReading, error) {
	var r domain.SensorReading
	err := s.db.GetContext(ctx, &r, s.db.Rebind(selectLatestForUnit), unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SensorReading{}, fmt.Errorf("%w: no reading for unit %s", domain.ErrNotFound, unitID)
	}
	if err != nil {
		return domain.SensorReading{}, fmt.Errorf("query latest reading for %s: %w", unitID, err)
	}
	r.Timestamp = r.Timestamp.UTC()
	return r, nil
}

// LatestReadings returns the most recent reading of every unit, ordered by unit id.
func (s *Store) LatestReadings(ctx context.Context) ([]domain.SensorReading, error) {
	var readings []domain.SensorReading
	if err := s.db.SelectContext(ctx, &readings, selectLatestPerUnit); err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	for i := range readings {
		readings[i].Timestamp = readings[i].Timestamp.UTC()
	}
	return readings, nil
}
