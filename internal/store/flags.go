// Package store provides the data access layer for Flagbearer.
// It handles all direct interactions with the PostgreSQL database using the
// pgx driver. The core evaluation logic never embeds query logic beyond the
// keyed lookups exposed here.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to verify that PostgresStore implements both repositories.
var (
	_ FlagRepository     = (*PostgresStore)(nil)
	_ OverrideRepository = (*PostgresStore)(nil)
)

// FeatureFlag represents the database schema for a feature flag.
// It mirrors the 'feature_flags' table structure.
type FeatureFlag struct {
	ID                 int64     `db:"id"`
	Name               string    `db:"name"`
	GlobalDefaultState bool      `db:"global_default_state"`
	Description        string    `db:"description"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// FlagRepository defines the interface for flag persistence operations.
// Using an interface allows for dependency injection and easier mocking in tests.
type FlagRepository interface {
	// CreateFlag inserts a new flag and populates the ID and timestamps in the
	// struct. The name is normalized (lowercase, trimmed) before insert.
	CreateFlag(ctx context.Context, f *FeatureFlag) error

	// GetFlag retrieves a flag by ID. Returns ErrNotFound if it does not exist.
	GetFlag(ctx context.Context, id int64) (*FeatureFlag, error)

	// ListFlags retrieves all flags ordered by name (deterministic).
	ListFlags(ctx context.Context) ([]*FeatureFlag, error)

	// UpdateFlag persists name/default/description changes for an existing flag.
	// The name is normalized before the update. Returns ErrNotFound if the flag
	// no longer exists and ErrDuplicateName on a name collision.
	UpdateFlag(ctx context.Context, f *FeatureFlag) error

	// DeleteFlag removes a flag; its overrides cascade at the database layer.
	// Returns ErrNotFound if the flag does not exist.
	DeleteFlag(ctx context.Context, id int64) error
}

// PostgresStore implements FlagRepository and OverrideRepository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// NormalizeFlagName lowercases and trims a flag name. Normalization happens
// once, at write time; reads return the stored form untouched.
func NormalizeFlagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateFlag inserts a new flag into the database.
// It uses the RETURNING clause to get the server-generated ID and timestamps.
func (s *PostgresStore) CreateFlag(ctx context.Context, f *FeatureFlag) error {
	f.Name = NormalizeFlagName(f.Name)

	query := `
		INSERT INTO feature_flags (name, global_default_state, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		f.Name,
		f.GlobalDefaultState,
		f.Description,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("flag %q: %w", f.Name, ErrDuplicateName)
		}
		return fmt.Errorf("failed to insert flag: %w", err)
	}

	return nil
}

// GetFlag fetches a single flag by its primary key.
func (s *PostgresStore) GetFlag(ctx context.Context, id int64) (*FeatureFlag, error) {
	query := `
		SELECT id, name, global_default_state, description, created_at, updated_at
		FROM feature_flags
		WHERE id = $1
	`

	var f FeatureFlag
	err := s.db.QueryRow(ctx, query, id).Scan(
		&f.ID,
		&f.Name,
		&f.GlobalDefaultState,
		&f.Description,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flag %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}

	return &f, nil
}

// ListFlags retrieves every flag, ordered by name.
func (s *PostgresStore) ListFlags(ctx context.Context) ([]*FeatureFlag, error) {
	query := `
		SELECT id, name, global_default_state, description, created_at, updated_at
		FROM feature_flags
		ORDER BY name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer rows.Close()

	flags := []*FeatureFlag{}
	for rows.Next() {
		var f FeatureFlag
		if err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.GlobalDefaultState,
			&f.Description,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flag row: %w", err)
		}
		flags = append(flags, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return flags, nil
}

// UpdateFlag persists changes to an existing flag.
func (s *PostgresStore) UpdateFlag(ctx context.Context, f *FeatureFlag) error {
	f.Name = NormalizeFlagName(f.Name)

	query := `
		UPDATE feature_flags
		SET name = $2, global_default_state = $3, description = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := s.db.QueryRow(ctx, query,
		f.ID,
		f.Name,
		f.GlobalDefaultState,
		f.Description,
	).Scan(&f.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("flag %d: %w", f.ID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("flag %q: %w", f.Name, ErrDuplicateName)
		}
		return fmt.Errorf("failed to update flag: %w", err)
	}

	return nil
}

// DeleteFlag removes a flag. Overrides are removed by the ON DELETE CASCADE
// foreign key, matching the flag lifecycle contract.
func (s *PostgresStore) DeleteFlag(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM feature_flags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %d: %w", id, ErrNotFound)
	}

	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
