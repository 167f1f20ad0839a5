// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore persists keys in a relational database (DuckDB in the CLI).
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateSchema creates the api_keys table if missing.
func (s *SQLStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS api_keys (
			key_value VARCHAR PRIMARY KEY,
			provider VARCHAR NOT NULL,
			owner VARCHAR NOT NULL,
			user_id BIGINT NOT NULL DEFAULT 0,
			status VARCHAR NOT NULL,
			cooldown_until TIMESTAMP,
			failure_count INTEGER NOT NULL DEFAULT 0,
			last_used TIMESTAMP
		)
	`)

	return err
}

func (s *SQLStore) Insert(k *Key) error {
	_, err := s.db.Exec(`
		INSERT INTO api_keys
			(key_value, provider, owner, user_id, status, cooldown_until, failure_count, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		k.Value, k.Provider, string(k.Owner), k.UserID, string(k.Status),
		nullTime(k.CooldownUntil), k.FailureCount, nullTime(k.LastUsed),
	)
	if err != nil {
		return fmt.Errorf("inserting key: %w", err)
	}

	return nil
}

func (s *SQLStore) Get(value string) (*Key, error) {
	row := s.db.QueryRow(`
		SELECT key_value, provider, owner, user_id, status, cooldown_until, failure_count, last_used
		FROM api_keys WHERE key_value = ?`, value)

	k, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}

	return k, err
}

func (s *SQLStore) Update(k *Key) error {
	res, err := s.db.Exec(`
		UPDATE api_keys
		SET status = ?, cooldown_until = ?, failure_count = ?, last_used = ?
		WHERE key_value = ?`,
		string(k.Status), nullTime(k.CooldownUntil), k.FailureCount, nullTime(k.LastUsed), k.Value,
	)
	if err != nil {
		return fmt.Errorf("updating key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if n == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func (s *SQLStore) ListByProvider(provider string) ([]*Key, error) {
	rows, err := s.db.Query(`
		SELECT key_value, provider, owner, user_id, status, cooldown_until, failure_count, last_used
		FROM api_keys WHERE provider = ?`, provider)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var out []*Key

	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, k)
	}

	return out, rows.Err()
}

func (s *SQLStore) ReactivateExpired(provider string, now time.Time) error {
	_, err := s.db.Exec(`
		UPDATE api_keys
		SET status = ?, cooldown_until = NULL, failure_count = 0
		WHERE provider = ?
		  AND status IN (?, ?)
		  AND cooldown_until IS NOT NULL
		  AND cooldown_until <= ?`,
		string(StatusActive), provider,
		string(StatusQuotaExceeded), string(StatusRateLimited), now,
	)
	if err != nil {
		return fmt.Errorf("reactivating keys: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*Key, error) {
	var (
		k        Key
		owner    string
		status   string
		cooldown sql.NullTime
		lastUsed sql.NullTime
	)

	if err := row.Scan(&k.Value, &k.Provider, &owner, &k.UserID, &status,
		&cooldown, &k.FailureCount, &lastUsed); err != nil {
		return nil, err
	}

	k.Owner = Owner(owner)
	k.Status = Status(status)

	if cooldown.Valid {
		t := cooldown.Time
		k.CooldownUntil = &t
	}

	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsed = &t
	}

	return &k, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}
