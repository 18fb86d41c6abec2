// Package store persists decoded telemetry readings in SQLite on the
// receiver side.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ayush8-agh/sih/internal/telemetry"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/latest-readings.sql
var latestReadingsSQL string

// Reading is one persisted telemetry sample.
type Reading struct {
	DeviceMAC   string
	ReceivedAt  time.Time
	Temperature float64
	Humidity    float64
	GasRaw      int32
	HeartRate   float64
	SpO2        float64
	UptimeMS    uint32
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the readings database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertReading stores one decoded record together with its arrival time.
func (s *Store) InsertReading(rec *telemetry.Record, receivedAt time.Time) error {
	_, err := s.db.Exec(insertReadingSQL,
		rec.DeviceMAC,
		receivedAt.UTC().Format(time.RFC3339Nano),
		float64(rec.Temperature),
		float64(rec.Humidity),
		rec.GasLevel,
		float64(rec.HeartRate),
		float64(rec.SpO2),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// LatestReadings returns up to limit readings for a device, newest first.
func (s *Store) LatestReadings(deviceMAC string, limit int) ([]Reading, error) {
	rows, err := s.db.Query(latestReadingsSQL, deviceMAC, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	var out []Reading
	for rows.Next() {
		var r Reading
		var ts string
		if err := rows.Scan(&r.DeviceMAC, &ts, &r.Temperature, &r.Humidity, &r.GasRaw, &r.HeartRate, &r.SpO2, &r.UptimeMS); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		r.ReceivedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildDSN(path string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
