package flageval

import (
	"context"
	"fmt"

	"github.com/arturmelo/flagbearer/internal/store"
)

// fakeOverrideRepo is an in-memory store.OverrideRepository for unit tests.
type fakeOverrideRepo struct {
	overrides map[string]*store.Override
	findCalls int
	err       error
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: make(map[string]*store.Override)}
}

func (f *fakeOverrideRepo) add(flagID int64, kind store.Kind, identifier string, enabled bool) {
	f.overrides[scopeKey(flagID, kind, identifier)] = &store.Override{
		ID:            int64(len(f.overrides) + 1),
		FeatureFlagID: flagID,
		Kind:          kind,
		Identifier:    identifier,
		Enabled:       enabled,
	}
}

func (f *fakeOverrideRepo) FindOverride(_ context.Context, flagID int64, kind store.Kind, identifier string) (*store.Override, error) {
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}
	if o, ok := f.overrides[scopeKey(flagID, kind, identifier)]; ok {
		return o, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeOverrideRepo) ListOverrides(context.Context, int64) ([]*store.Override, error) {
	return nil, nil
}

func (f *fakeOverrideRepo) UpsertOverride(_ context.Context, o *store.Override) error {
	f.overrides[scopeKey(o.FeatureFlagID, o.Kind, o.Identifier)] = o
	return nil
}

func (f *fakeOverrideRepo) DeleteOverride(context.Context, int64) error {
	return nil
}

func scopeKey(flagID int64, kind store.Kind, identifier string) string {
	return fmt.Sprintf("%d|%s|%s", flagID, kind, identifier)
}

// fakeCache is an in-memory cache.Service without TTL semantics.
type fakeCache struct {
	entries  map[string]bool
	getCalls int
	setCalls int
	getErr   error
	setErr   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]bool)}
}

func (f *fakeCache) GetResult(_ context.Context, key string) (bool, bool, error) {
	f.getCalls++
	if f.getErr != nil {
		return false, false, f.getErr
	}
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeCache) SetResult(_ context.Context, key string, value bool) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value
	return nil
}

func (f *fakeCache) DeletePrefix(context.Context, string) error { return nil }
func (f *fakeCache) HealthCheck(context.Context) error          { return nil }
func (f *fakeCache) Close() error                               { return nil }
