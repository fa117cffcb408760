// Package postgres provides the PostgreSQL-backed session slot store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/migrate"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// SlotStore keeps session slots in the session_slots table.
// It expects a *sql.DB opened with the pgx stdlib driver.
type SlotStore struct {
	DB *sql.DB
}

var _ ports.SlotStore = (*SlotStore)(nil)

// NewSlotStore creates a new SlotStore.
func NewSlotStore(db *sql.DB) *SlotStore {
	if db == nil {
		panic("postgres.SlotStore: DB is required")
	}
	return &SlotStore{DB: db}
}

// EnsureSchema applies pending schema migrations, creating the slot table.
func (s *SlotStore) EnsureSchema(ctx context.Context) error {
	if _, err := migrate.Run(ctx, s.DB, nil); err != nil {
		return fmt.Errorf("ensure session_slots: %w", apperrors.MapDBError(err))
	}
	return nil
}

func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM session_slots WHERE slot_key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot %q: %w", key, apperrors.MapDBError(err))
	}
	return value, nil
}

func (s *SlotStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return apperrors.ValidationField("slot_key", "slot key cannot be empty")
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO session_slots (slot_key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set slot %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM session_slots WHERE slot_key = $1`, key); err != nil {
		return fmt.Errorf("delete slot %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}
