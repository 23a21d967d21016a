package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Kind is the dimension an override applies to.
type Kind string

// Supported override kinds, in precedence order (user wins over group, group
// over region).
const (
	KindUser   Kind = "user"
	KindGroup  Kind = "group"
	KindRegion Kind = "region"
)

// Kinds lists every supported kind in precedence order.
func Kinds() []Kind {
	return []Kind{KindUser, KindGroup, KindRegion}
}

// Valid reports whether k is a supported override kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindGroup, KindRegion:
		return true
	}
	return false
}

// Override represents a per-scope override row.
// Identifier is stored normalized (lowercase, trimmed); the unique index on
// (feature_flag_id, kind, identifier) enforces one row per scope.
type Override struct {
	ID            int64     `db:"id"`
	FeatureFlagID int64     `db:"feature_flag_id"`
	Kind          Kind      `db:"kind"`
	Identifier    string    `db:"identifier"`
	Enabled       bool      `db:"enabled"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// OverrideRepository defines the interface for override persistence operations.
type OverrideRepository interface {
	// FindOverride looks up the single override for (flag, kind, identifier).
	// The identifier must already be normalized. Returns ErrNotFound when no
	// row exists.
	FindOverride(ctx context.Context, flagID int64, kind Kind, identifier string) (*Override, error)

	// ListOverrides retrieves every override for a flag, ordered by kind then
	// identifier.
	ListOverrides(ctx context.Context, flagID int64) ([]*Override, error)

	// UpsertOverride inserts the override or, when a row for the same
	// (flag, kind, identifier) already exists, updates its enabled value.
	// The conflict is resolved atomically at the database, so concurrent
	// create-or-update calls for the same scope serialize there. ID and
	// timestamps are populated on return.
	UpsertOverride(ctx context.Context, o *Override) error

	// DeleteOverride removes an override by primary key.
	// Returns ErrNotFound if the row is already gone.
	DeleteOverride(ctx context.Context, id int64) error
}

// FindOverride fetches the override matching the exact scope key.
func (s *PostgresStore) FindOverride(ctx context.Context, flagID int64, kind Kind, identifier string) (*Override, error) {
	query := `
		SELECT id, feature_flag_id, kind, identifier, enabled, created_at, updated_at
		FROM overrides
		WHERE feature_flag_id = $1 AND kind = $2 AND identifier = $3
	`

	var o Override
	err := s.db.QueryRow(ctx, query, flagID, kind, identifier).Scan(
		&o.ID,
		&o.FeatureFlagID,
		&o.Kind,
		&o.Identifier,
		&o.Enabled,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("override (%d, %s, %s): %w", flagID, kind, identifier, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find override: %w", err)
	}

	return &o, nil
}

// ListOverrides retrieves all overrides for a flag.
func (s *PostgresStore) ListOverrides(ctx context.Context, flagID int64) ([]*Override, error) {
	query := `
		SELECT id, feature_flag_id, kind, identifier, enabled, created_at, updated_at
		FROM overrides
		WHERE feature_flag_id = $1
		ORDER BY kind, identifier
	`

	rows, err := s.db.Query(ctx, query, flagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	overrides := []*Override{}
	for rows.Next() {
		var o Override
		if err := rows.Scan(
			&o.ID,
			&o.FeatureFlagID,
			&o.Kind,
			&o.Identifier,
			&o.Enabled,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan override row: %w", err)
		}
		overrides = append(overrides, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return overrides, nil
}

// UpsertOverride inserts or updates the override for a scope key.
// ON CONFLICT DO UPDATE makes the racing-insert case degrade to an update,
// so callers never observe a unique violation on this path.
func (s *PostgresStore) UpsertOverride(ctx context.Context, o *Override) error {
	query := `
		INSERT INTO overrides (feature_flag_id, kind, identifier, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (feature_flag_id, kind, identifier)
		DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		o.FeatureFlagID,
		o.Kind,
		o.Identifier,
		o.Enabled,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}

	return nil
}

// DeleteOverride removes an override row by ID.
func (s *PostgresStore) DeleteOverride(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("override %d: %w", id, ErrNotFound)
	}

	return nil
}
