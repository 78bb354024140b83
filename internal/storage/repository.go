// Package storage persists the trip collection, the user profile and the
// last-used-currency preference in SQLite. Trips are stored as whole
// serialized aggregates, matching the engine's load-at-start /
// save-on-change model.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tripledger/internal/core"

	_ "modernc.org/sqlite"
)

const (
	keyProfile      = "profile"
	keyLastCurrency = "last_currency"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTrips loads the whole trip collection. A missing or empty store
// yields an empty slice, never an error.
func (r *SQLiteRepository) ListTrips(ctx context.Context) ([]core.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM trips ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []core.Trip
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		var t core.Trip
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			// A corrupt row must not take the whole collection down.
			slog.WarnContext(ctx, "Skipping undecodable trip row", "error", err)
			continue
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return trips, nil
}

func (r *SQLiteRepository) GetTrip(ctx context.Context, id string) (core.Trip, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM trips WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trip{}, core.ErrTripNotFound
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("get trip: %w", err)
	}

	var t core.Trip
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return core.Trip{}, fmt.Errorf("decode trip: %w", err)
	}
	return t, nil
}

// SaveTrip upserts the whole aggregate.
func (r *SQLiteRepository) SaveTrip(ctx context.Context, t core.Trip) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trip: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trips (id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		t.ID, string(data))
	if err != nil {
		return fmt.Errorf("save trip: %w", err)
	}

	slog.InfoContext(ctx, "Trip saved", "trip_id", t.ID, "name", t.Name)
	return nil
}

// DeleteTrip removes the trip and its backup snapshot. Deletion cascades
// by construction: the aggregate owns everything it contains.
func (r *SQLiteRepository) DeleteTrip(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trip_backups WHERE trip_id = ?`, id); err != nil {
		return fmt.Errorf("delete trip backup: %w", err)
	}
	return nil
}

// LoadProfile returns the stored user profile, or a seed profile when
// the store has none yet.
func (r *SQLiteRepository) LoadProfile(ctx context.Context) (core.UserProfile, error) {
	value, err := r.getSetting(ctx, keyProfile)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{Name: "旅人", Avatar: "🦊"}, nil
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}

	var p core.UserProfile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return core.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.setSetting(ctx, keyProfile, string(data)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadLastCurrency returns the last-used currency preference, defaulting
// to the base currency.
func (r *SQLiteRepository) LoadLastCurrency(ctx context.Context) (core.Currency, error) {
	value, err := r.getSetting(ctx, keyLastCurrency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BaseCurrency, nil
	}
	if err != nil {
		return core.BaseCurrency, fmt.Errorf("load last currency: %w", err)
	}

	c, err := core.ParseCurrency(value)
	if err != nil {
		return core.BaseCurrency, nil
	}
	return c, nil
}

func (r *SQLiteRepository) SaveLastCurrency(ctx context.Context, c core.Currency) error {
	if err := r.setSetting(ctx, keyLastCurrency, string(c)); err != nil {
		return fmt.Errorf("save last currency: %w", err)
	}
	return nil
}

// SaveBackup writes the snapshot kept by the backup worker.
func (r *SQLiteRepository) SaveBackup(ctx context.Context, t core.Trip) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trip_backups (trip_id, data, backed_up_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(trip_id) DO UPDATE SET data = excluded.data, backed_up_at = CURRENT_TIMESTAMP`,
		t.ID, string(data))
	if err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBackup(ctx context.Context, tripID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trip_backups WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}
