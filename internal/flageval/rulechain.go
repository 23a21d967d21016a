package flageval

import (
	"context"
	"errors"

	"github.com/arturmelo/flagbearer/internal/store"
)

// Rule is a single precedence tier in the chain formulation of evaluation.
// The chain runs rules in declared order; the first applicable rule's result
// wins. New scope kinds are added by inserting a rule implementation, without
// touching the resolution loop.
type Rule interface {
	// Applicable reports whether this rule decides the outcome for the
	// context (the scope identifier is present and a matching override
	// exists for it).
	Applicable(ctx context.Context, ec Context) (bool, error)

	// Evaluate returns the rule's enabled value. It must only be called
	// after Applicable has returned true for the same context.
	Evaluate(ctx context.Context, ec Context) (bool, error)

	// Source identifies the precedence tier this rule represents.
	Source() Source
}

// Chain is the extensibility-oriented alternative to Evaluator.resolve:
// an ordered rule list terminated by the always-applicable global default.
// Both formulations produce identical results for every flag and context.
//
// A Chain is built per evaluation (construction is cheap) so that rules may
// memoize the override they looked up between Applicable and Evaluate.
type Chain struct {
	rules []Rule
}

// NewChain builds the standard four-tier chain for a flag:
// user override, group override, region override, global default.
func NewChain(flag *store.FeatureFlag, overrides store.OverrideRepository) *Chain {
	return &Chain{
		rules: []Rule{
			newOverrideRule(flag, overrides, store.KindUser, SourceUser, func(ec Context) string { return ec.UserID }),
			newOverrideRule(flag, overrides, store.KindGroup, SourceGroup, func(ec Context) string { return ec.GroupID }),
			newOverrideRule(flag, overrides, store.KindRegion, SourceRegion, func(ec Context) string { return ec.Region }),
			&globalDefaultRule{flag: flag},
		},
	}
}

// Evaluate runs the chain. The global default rule is always applicable, so
// every evaluation terminates in a Result; only store I/O failures error.
func (c *Chain) Evaluate(ctx context.Context, ec Context) (Result, error) {
	ec = ec.Normalize()

	for _, rule := range c.rules {
		applicable, err := rule.Applicable(ctx, ec)
		if err != nil {
			return Result{}, err
		}
		if !applicable {
			continue
		}

		enabled, err := rule.Evaluate(ctx, ec)
		if err != nil {
			return Result{}, err
		}

		return Result{Enabled: enabled, Source: rule.Source()}, nil
	}

	// Unreachable while the chain ends with the global default rule.
	return Result{}, errors.New("rule chain exhausted without a decision")
}

// overrideRule matches one override kind against its context dimension.
type overrideRule struct {
	flag       *store.FeatureFlag
	overrides  store.OverrideRepository
	kind       store.Kind
	source     Source
	identifier func(Context) string

	// memoized lookup shared between Applicable and Evaluate
	found *store.Override
}

func newOverrideRule(
	flag *store.FeatureFlag,
	overrides store.OverrideRepository,
	kind store.Kind,
	source Source,
	identifier func(Context) string,
) *overrideRule {
	return &overrideRule{
		flag:       flag,
		overrides:  overrides,
		kind:       kind,
		source:     source,
		identifier: identifier,
	}
}

func (r *overrideRule) Applicable(ctx context.Context, ec Context) (bool, error) {
	id := r.identifier(ec)
	if id == "" {
		return false, nil
	}

	o, err := r.overrides.FindOverride(ctx, r.flag.ID, r.kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	r.found = o
	return true, nil
}

func (r *overrideRule) Evaluate(ctx context.Context, ec Context) (bool, error) {
	if r.found != nil {
		return r.found.Enabled, nil
	}

	// Applicable was skipped; look the override up directly.
	o, err := r.overrides.FindOverride(ctx, r.flag.ID, r.kind, r.identifier(ec))
	if err != nil {
		return false, err
	}

	return o.Enabled, nil
}

func (r *overrideRule) Source() Source {
	return r.source
}

// globalDefaultRule is the terminal fallback; it is always applicable.
type globalDefaultRule struct {
	flag *store.FeatureFlag
}

func (r *globalDefaultRule) Applicable(context.Context, Context) (bool, error) {
	return true, nil
}

func (r *globalDefaultRule) Evaluate(context.Context, Context) (bool, error) {
	return r.flag.GlobalDefaultState, nil
}

func (r *globalDefaultRule) Source() Source {
	return SourceGlobal
}
