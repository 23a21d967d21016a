package flageval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arturmelo/flagbearer/internal/cache"
	"github.com/arturmelo/flagbearer/internal/store"
)

// Source identifies the precedence tier that decided an evaluation.
type Source string

// Precedence tiers, highest first.
const (
	SourceUser   Source = "user"
	SourceGroup  Source = "group"
	SourceRegion Source = "region"
	SourceGlobal Source = "global"
)

// Result is the outcome of an uncached evaluation: the boolean value and
// the tier it came from.
type Result struct {
	Enabled bool
	Source  Source
}

// Evaluator resolves the override precedence chain for a flag and context,
// consulting the result cache first on the plain Evaluate path.
type Evaluator struct {
	overrides store.OverrideRepository
	cache     cache.Service
	logger    *slog.Logger
}

// NewEvaluator creates an Evaluator. If logger is nil, it defaults to
// slog.Default().
func NewEvaluator(overrides store.OverrideRepository, cacheSvc cache.Service, logger *slog.Logger) *Evaluator {
	if overrides == nil {
		panic("flageval: override repository cannot be nil")
	}
	if cacheSvc == nil {
		panic("flageval: cache service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		overrides: overrides,
		cache:     cacheSvc,
		logger:    logger,
	}
}

// Evaluate returns the flag's value for the context using a read-through
// cache. On a hit the cached boolean is returned without touching the store;
// on a miss the full precedence chain runs and the result is cached with the
// service's TTL. Cache failures degrade to uncached evaluation, they never
// fail the request.
func (e *Evaluator) Evaluate(ctx context.Context, flag *store.FeatureFlag, ec Context) (bool, error) {
	ec = ec.Normalize()
	key := Fingerprint(flag.ID, ec)

	value, found, err := e.cache.GetResult(ctx, key)
	if err != nil {
		// Fail open: treat a broken cache as a miss.
		e.logger.Warn("cache lookup failed, evaluating uncached",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
	if found {
		return value, nil
	}

	result, err := e.resolve(ctx, flag, ec)
	if err != nil {
		return false, err
	}

	if err := e.cache.SetResult(ctx, key, result.Enabled); err != nil {
		e.logger.Warn("failed to cache evaluation result",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}

	return result.Enabled, nil
}

// EvaluateWithMetadata resolves the precedence chain and reports which tier
// decided the value. It always runs uncached, in both directions: the source
// is not part of the cached value shape, so this path neither reads from nor
// writes to the result cache. Until a cached Evaluate entry expires, the two
// entry points can therefore disagree after an override mutation.
func (e *Evaluator) EvaluateWithMetadata(ctx context.Context, flag *store.FeatureFlag, ec Context) (Result, error) {
	return e.resolve(ctx, flag, ec.Normalize())
}

// resolve walks the precedence tiers in fixed order. Ties are impossible:
// the store holds at most one override per (flag, kind, identifier), so the
// tier order is the only tie-break needed.
func (e *Evaluator) resolve(ctx context.Context, flag *store.FeatureFlag, ec Context) (Result, error) {
	tiers := []struct {
		kind       store.Kind
		identifier string
		source     Source
	}{
		{store.KindUser, ec.UserID, SourceUser},
		{store.KindGroup, ec.GroupID, SourceGroup},
		{store.KindRegion, ec.Region, SourceRegion},
	}

	for _, tier := range tiers {
		if tier.identifier == "" {
			continue
		}

		o, err := e.overrides.FindOverride(ctx, flag.ID, tier.kind, tier.identifier)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return Result{}, err
		}

		return Result{Enabled: o.Enabled, Source: tier.source}, nil
	}

	return Result{Enabled: flag.GlobalDefaultState, Source: SourceGlobal}, nil
}
