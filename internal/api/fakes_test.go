package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arturmelo/flagbearer/internal/cache"
	"github.com/arturmelo/flagbearer/internal/flageval"
	"github.com/arturmelo/flagbearer/internal/override"
	"github.com/arturmelo/flagbearer/internal/store"
)

// memStore is an in-memory implementation of both repositories, mirroring the
// store's contract (normalization, sentinel errors, ordering) closely enough
// for handler tests.
type memStore struct {
	mu             sync.Mutex
	flags          map[int64]*store.FeatureFlag
	overrides      map[string]*store.Override
	nextFlagID     int64
	nextOverrideID int64

	// forced failures
	flagErr error
}

var (
	_ store.FlagRepository     = (*memStore)(nil)
	_ store.OverrideRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		flags:     make(map[int64]*store.FeatureFlag),
		overrides: make(map[string]*store.Override),
	}
}

func overrideKey(flagID int64, kind store.Kind, identifier string) string {
	return fmt.Sprintf("%d|%s|%s", flagID, kind, identifier)
}

func (s *memStore) CreateFlag(_ context.Context, f *store.FeatureFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flagErr != nil {
		return s.flagErr
	}

	f.Name = store.NormalizeFlagName(f.Name)
	for _, existing := range s.flags {
		if existing.Name == f.Name {
			return fmt.Errorf("flag %q: %w", f.Name, store.ErrDuplicateName)
		}
	}

	s.nextFlagID++
	f.ID = s.nextFlagID
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	clone := *f
	s.flags[f.ID] = &clone
	return nil
}

func (s *memStore) GetFlag(_ context.Context, id int64) (*store.FeatureFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flagErr != nil {
		return nil, s.flagErr
	}

	f, ok := s.flags[id]
	if !ok {
		return nil, fmt.Errorf("flag %d: %w", id, store.ErrNotFound)
	}
	clone := *f
	return &clone, nil
}

func (s *memStore) ListFlags(_ context.Context) ([]*store.FeatureFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flagErr != nil {
		return nil, s.flagErr
	}

	out := []*store.FeatureFlag{}
	for _, f := range s.flags {
		clone := *f
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) UpdateFlag(_ context.Context, f *store.FeatureFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[f.ID]; !ok {
		return fmt.Errorf("flag %d: %w", f.ID, store.ErrNotFound)
	}

	f.Name = store.NormalizeFlagName(f.Name)
	for id, existing := range s.flags {
		if id != f.ID && existing.Name == f.Name {
			return fmt.Errorf("flag %q: %w", f.Name, store.ErrDuplicateName)
		}
	}

	f.UpdatedAt = time.Now()
	clone := *f
	s.flags[f.ID] = &clone
	return nil
}

func (s *memStore) DeleteFlag(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[id]; !ok {
		return fmt.Errorf("flag %d: %w", id, store.ErrNotFound)
	}
	delete(s.flags, id)
	for key, o := range s.overrides {
		if o.FeatureFlagID == id {
			delete(s.overrides, key)
		}
	}
	return nil
}

func (s *memStore) FindOverride(_ context.Context, flagID int64, kind store.Kind, identifier string) (*store.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.overrides[overrideKey(flagID, kind, identifier)]
	if !ok {
		return nil, fmt.Errorf("override (%d, %s, %s): %w", flagID, kind, identifier, store.ErrNotFound)
	}
	clone := *o
	return &clone, nil
}

func (s *memStore) ListOverrides(_ context.Context, flagID int64) ([]*store.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*store.Override{}
	for _, o := range s.overrides {
		if o.FeatureFlagID == flagID {
			clone := *o
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out, nil
}

func (s *memStore) UpsertOverride(_ context.Context, o *store.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := overrideKey(o.FeatureFlagID, o.Kind, o.Identifier)
	if existing, ok := s.overrides[key]; ok {
		o.ID = existing.ID
		o.CreatedAt = existing.CreatedAt
	} else {
		s.nextOverrideID++
		o.ID = s.nextOverrideID
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = time.Now()
	clone := *o
	s.overrides[key] = &clone
	return nil
}

func (s *memStore) DeleteOverride(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, o := range s.overrides {
		if o.ID == id {
			delete(s.overrides, key)
			return nil
		}
	}
	return fmt.Errorf("override %d: %w", id, store.ErrNotFound)
}

// testAPI bundles the API under test with its collaborators.
type testAPI struct {
	api   *API
	repo  *memStore
	cache cache.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	repo := newMemStore()
	resultCache, err := cache.NewMemoryCache(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resultCache.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	evaluator := flageval.NewEvaluator(repo, resultCache, log)
	manager := override.NewManager(repo, resultCache, log)

	return &testAPI{
		api:   NewAPI(repo, evaluator, manager, log),
		repo:  repo,
		cache: resultCache,
	}
}

// do performs a request against the router and returns the recorded response.
func (ta *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ta.api.Router.ServeHTTP(rec, req)
	return rec
}

// createFlag seeds a flag through the repository, not the HTTP surface.
func (ta *testAPI) createFlag(t *testing.T, name string, globalDefault bool) *store.FeatureFlag {
	t.Helper()

	f := &store.FeatureFlag{Name: name, GlobalDefaultState: globalDefault}
	require.NoError(t, ta.repo.CreateFlag(context.Background(), f))
	return f
}

// decode unmarshals the recorded JSON body into dst.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// decodeError unmarshals the error envelope.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()

	var envelope ErrorResponse
	decode(t, rec, &envelope)
	return envelope.Error
}
