// Package override implements the mutation protocol for per-scope overrides:
// validated create-or-update and remove operations that keep the evaluation
// result cache consistent by invalidating every cached entry of the affected
// flag.
package override

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturmelo/flagbearer/internal/cache"
	"github.com/arturmelo/flagbearer/internal/flageval"
	"github.com/arturmelo/flagbearer/internal/store"
)

// ErrInvalidKind reports a caller-input error: the requested override kind is
// not one of user, group, region. The HTTP boundary maps it to 400.
var ErrInvalidKind = errors.New("override type must be one of: user, group, region")

// Result reports the outcome of a mutation. Business failures (validation,
// missing row on remove) are carried in Errors with Success=false; they are
// values, not Go errors, leaving the boundary to translate them.
type Result struct {
	Success  bool
	Override *store.Override
	Errors   []string
}

// failure builds an unsuccessful result with the given messages.
func failure(msgs ...string) Result {
	return Result{Success: false, Errors: msgs}
}

// Manager validates and applies override mutations against the store and
// triggers flag-scoped cache invalidation on success.
type Manager struct {
	overrides store.OverrideRepository
	cache     cache.Service
	logger    *slog.Logger
}

// NewManager creates a Manager. If logger is nil, it defaults to slog.Default().
func NewManager(overrides store.OverrideRepository, cacheSvc cache.Service, logger *slog.Logger) *Manager {
	if overrides == nil {
		panic("override: override repository cannot be nil")
	}
	if cacheSvc == nil {
		panic("override: cache service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		overrides: overrides,
		cache:     cacheSvc,
		logger:    logger,
	}
}

// CreateOrUpdate sets the enabled value for (flag, kind, identifier),
// creating the override if absent. The identifier is normalized before the
// store sees it, so case-different spellings address the same row. A racing
// create for the same scope degrades to an update inside the store's upsert.
//
// Returns ErrInvalidKind for an unsupported kind and a non-nil error for
// store failures; everything else is reported through the Result.
func (m *Manager) CreateOrUpdate(ctx context.Context, flag *store.FeatureFlag, kind store.Kind, identifier string, enabled bool) (Result, error) {
	if !kind.Valid() {
		return Result{}, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	normalized := flageval.NormalizeIdentifier(identifier)
	if normalized == "" {
		return failure("Identifier can't be blank"), nil
	}

	o := &store.Override{
		FeatureFlagID: flag.ID,
		Kind:          kind,
		Identifier:    normalized,
		Enabled:       enabled,
	}

	if err := m.overrides.UpsertOverride(ctx, o); err != nil {
		return Result{}, err
	}

	m.invalidate(ctx, flag.ID)

	return Result{Success: true, Override: o}, nil
}

// Remove deletes the override for (flag, kind, identifier). A missing row is
// a reported business failure ("Override not found"), not an error.
func (m *Manager) Remove(ctx context.Context, flag *store.FeatureFlag, kind store.Kind, identifier string) (Result, error) {
	if !kind.Valid() {
		return Result{}, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	normalized := flageval.NormalizeIdentifier(identifier)

	o, err := m.overrides.FindOverride(ctx, flag.ID, kind, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure("Override not found"), nil
		}
		return Result{}, err
	}

	if err := m.overrides.DeleteOverride(ctx, o.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost a race with a concurrent remove; same outcome for the caller.
			return failure("Override not found"), nil
		}
		return Result{}, err
	}

	m.invalidate(ctx, flag.ID)

	return Result{Success: true}, nil
}

// List returns every override for the flag, ordered by kind then identifier.
func (m *Manager) List(ctx context.Context, flag *store.FeatureFlag) ([]*store.Override, error) {
	return m.overrides.ListOverrides(ctx, flag.ID)
}

// invalidate sweeps every cached evaluation for the flag. Invalidation is
// flag-scoped because a change to one scope's override can alter the correct
// answer for entries keyed by other context combinations that previously fell
// through to the changed tier. The sweep is best-effort: on failure the TTL
// still bounds staleness, so the mutation itself is not rolled back.
func (m *Manager) invalidate(ctx context.Context, flagID int64) {
	prefix := flageval.FlagKeyPrefix(flagID)
	if err := m.cache.DeletePrefix(ctx, prefix); err != nil {
		m.logger.Error("failed to invalidate cached evaluations",
			slog.Int64("flag_id", flagID),
			slog.String("prefix", prefix),
			slog.Any("error", err),
		)
	}
}
