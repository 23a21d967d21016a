package flageval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturmelo/flagbearer/internal/store"
)

func newTestFlag(enabled bool) *store.FeatureFlag {
	return &store.FeatureFlag{ID: 42, Name: "dark_mode", GlobalDefaultState: enabled}
}

func TestEvaluator_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		globalState bool
		setup       func(repo *fakeOverrideRepo)
		ec          Context
		wantEnabled bool
		wantSource  Source
	}{
		{
			name:        "Should fall back to the global default with an empty context",
			globalState: false,
			setup:       func(*fakeOverrideRepo) {},
			ec:          Context{},
			wantEnabled: false,
			wantSource:  SourceGlobal,
		},
		{
			name:        "Should prefer the user override over group and region",
			globalState: false,
			setup: func(repo *fakeOverrideRepo) {
				repo.add(42, store.KindUser, "user1", true)
				repo.add(42, store.KindGroup, "group1", false)
				repo.add(42, store.KindRegion, "us-east", false)
			},
			ec:          Context{UserID: "user1", GroupID: "group1", Region: "us-east"},
			wantEnabled: true,
			wantSource:  SourceUser,
		},
		{
			name:        "Should prefer the group override over region when no user override matches",
			globalState: false,
			setup: func(repo *fakeOverrideRepo) {
				repo.add(42, store.KindGroup, "group1", true)
				repo.add(42, store.KindRegion, "us-east", false)
			},
			ec:          Context{UserID: "unknown", GroupID: "group1", Region: "us-east"},
			wantEnabled: true,
			wantSource:  SourceGroup,
		},
		{
			name:        "Should use the region override when user and group are absent",
			globalState: false,
			setup: func(repo *fakeOverrideRepo) {
				repo.add(42, store.KindRegion, "us-east", true)
			},
			ec:          Context{Region: "us-east"},
			wantEnabled: true,
			wantSource:  SourceRegion,
		},
		{
			name:        "Should let a disabling user override beat an enabling global default",
			globalState: true,
			setup: func(repo *fakeOverrideRepo) {
				repo.add(42, store.KindUser, "user1", false)
			},
			ec:          Context{UserID: "user1"},
			wantEnabled: false,
			wantSource:  SourceUser,
		},
		{
			name:        "Should match overrides against the normalized identifier",
			globalState: false,
			setup: func(repo *fakeOverrideRepo) {
				repo.add(42, store.KindUser, "user1", true)
			},
			ec:          Context{UserID: "  USER1  "},
			wantEnabled: true,
			wantSource:  SourceUser,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeOverrideRepo()
			tt.setup(repo)
			evaluator := NewEvaluator(repo, newFakeCache(), nil)
			flag := newTestFlag(tt.globalState)

			result, err := evaluator.EvaluateWithMetadata(context.Background(), flag, tt.ec)

			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, result.Enabled)
			assert.Equal(t, tt.wantSource, result.Source)

			// The plain path resolves to the same boolean.
			enabled, err := evaluator.Evaluate(context.Background(), flag, tt.ec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, enabled)
		})
	}
}

func TestEvaluator_CachesResults(t *testing.T) {
	t.Parallel()

	repo := newFakeOverrideRepo()
	repo.add(42, store.KindUser, "user1", true)
	cacheSvc := newFakeCache()
	evaluator := NewEvaluator(repo, cacheSvc, nil)
	flag := newTestFlag(false)
	ec := Context{UserID: "user1"}

	enabled, err := evaluator.Evaluate(context.Background(), flag, ec)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, repo.findCalls)
	assert.Equal(t, 1, cacheSvc.setCalls)

	// Second evaluation is served from cache without touching the store.
	enabled, err = evaluator.Evaluate(context.Background(), flag, ec)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, repo.findCalls)
}

func TestEvaluator_CacheHitBypassesStore(t *testing.T) {
	t.Parallel()

	repo := newFakeOverrideRepo()
	cacheSvc := newFakeCache()
	cacheSvc.entries[Fingerprint(42, Context{UserID: "user1"})] = true
	evaluator := NewEvaluator(repo, cacheSvc, nil)

	enabled, err := evaluator.Evaluate(context.Background(), newTestFlag(false), Context{UserID: "user1"})

	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Zero(t, repo.findCalls)
}

func TestEvaluator_FailsOpenOnCacheErrors(t *testing.T) {
	t.Parallel()

	repo := newFakeOverrideRepo()
	repo.add(42, store.KindUser, "user1", true)
	cacheSvc := newFakeCache()
	cacheSvc.getErr = errors.New("redis: connection refused")
	cacheSvc.setErr = errors.New("redis: connection refused")
	evaluator := NewEvaluator(repo, cacheSvc, nil)

	enabled, err := evaluator.Evaluate(context.Background(), newTestFlag(false), Context{UserID: "user1"})

	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, repo.findCalls)
}

func TestEvaluator_PropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	repo := newFakeOverrideRepo()
	repo.err = errors.New("connection reset by peer")
	evaluator := NewEvaluator(repo, newFakeCache(), nil)

	_, err := evaluator.Evaluate(context.Background(), newTestFlag(false), Context{UserID: "user1"})
	assert.ErrorContains(t, err, "connection reset")

	_, err = evaluator.EvaluateWithMetadata(context.Background(), newTestFlag(false), Context{UserID: "user1"})
	assert.ErrorContains(t, err, "connection reset")
}

// TestEvaluator_MetadataBypassesCache pins the asymmetry between the two
// entry points: Evaluate serves stale cached values until the TTL expires,
// while EvaluateWithMetadata always reflects the current store state and
// never populates the cache.
func TestEvaluator_MetadataBypassesCache(t *testing.T) {
	t.Parallel()

	repo := newFakeOverrideRepo()
	repo.add(42, store.KindUser, "user1", true)
	cacheSvc := newFakeCache()
	// A stale entry left behind before the override flipped.
	cacheSvc.entries[Fingerprint(42, Context{UserID: "user1"})] = false
	evaluator := NewEvaluator(repo, cacheSvc, nil)
	flag := newTestFlag(false)
	ec := Context{UserID: "user1"}

	result, err := evaluator.EvaluateWithMetadata(context.Background(), flag, ec)
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	assert.Equal(t, SourceUser, result.Source)

	// The metadata path did not overwrite or read the cached entry.
	assert.Zero(t, cacheSvc.setCalls)
	enabled, err := evaluator.Evaluate(context.Background(), flag, ec)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestNewEvaluator_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewEvaluator(nil, newFakeCache(), nil) })
	assert.Panics(t, func() { NewEvaluator(newFakeOverrideRepo(), nil, nil) })
}
