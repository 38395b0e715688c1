package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/highlight"
	"github.com/sakif/pastie/internal/model"
)

func TestCloud_WeightsAndCaching(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "go web", nil)
	env.create(t, "b", "go", nil)
	ctx := context.Background()

	cloud, err := env.tags.Cloud(ctx)
	require.NoError(t, err)
	require.Len(t, cloud, 2)
	assert.Equal(t, "go", cloud[0].Name)
	assert.Equal(t, 2, cloud[0].Count)
	assert.InDelta(t, math.Log(2)*4+10, cloud[0].Weight, 1e-9)
	assert.InDelta(t, 10.0, cloud[1].Weight, 1e-9)

	_, err = env.tags.Cloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, env.repo.countCalls, "second read should be a cache hit")
}

func TestCloud_CreateInvalidates(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "go", nil)
	ctx := context.Background()

	_, err := env.tags.Cloud(ctx)
	require.NoError(t, err)

	env.create(t, "b", "rust", nil)

	cloud, err := env.tags.Cloud(ctx)
	require.NoError(t, err)
	assert.Len(t, cloud, 2)
	assert.Equal(t, 2, env.repo.countCalls)
}

func TestTagPastes(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "Go", nil)
	env.create(t, "b", "rust", nil)
	env.create(t, "c", "go", nil)

	listing, err := env.tags.Pastes(context.Background(), "GO", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "Go", listing.Tag.Name)
	assert.Equal(t, 2, listing.Page.ItemCount)
	assert.Equal(t, "c", listing.Page.Items[0].Title)
}

func TestTagPastes_CaseVariantsShareCacheEntry(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "Go", nil)
	ctx := context.Background()

	_, err := env.tags.Pastes(ctx, "Go", 1, 0)
	require.NoError(t, err)
	calls := env.repo.taggedCalls
	_, err = env.tags.Pastes(ctx, "gO", 1, 0)
	require.NoError(t, err)

	assert.Equal(t, calls, env.repo.taggedCalls, "second spelling should be a cache hit")
}

func TestTagPastes_OutOfRangePagesShareOneEntry(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "go", nil)
	ctx := context.Background()

	for p := 1; p <= 2000; p++ {
		listing, err := env.tags.Pastes(ctx, "go", p*7, 0)
		require.NoError(t, err)
		require.Equal(t, 1, listing.Page.CurrentPage)
	}

	assert.Equal(t, 2, env.store.entries(NamespaceTagListing), "one summary entry and one page entry")
}

func TestTagPastes_UnknownTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tags.Pastes(ctx, "nothing", 1, 0)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = env.tags.Pastes(ctx, "   ", 1, 0)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	// Errors are not cached: once the tag exists it is found.
	env.create(t, "now exists", "nothing", nil)
	listing, err := env.tags.Pastes(ctx, "nothing", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Page.ItemCount)
}

func TestTagNames(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "a", "zeta Alpha", nil)

	names, err := env.tags.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "zeta"}, names)
}

// =========================================================================
// INVALIDATION
// =========================================================================

// Creating a paste tagged x and Y evicts exactly the x and y listings: the
// listing of z, which the new paste does not carry, stays cached.
func TestCreate_InvalidatesOnlyItsTags(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "seed", "x y z", nil)
	ctx := context.Background()

	for _, name := range []string{"x", "y", "z"} {
		_, err := env.tags.Pastes(ctx, name, 1, 0)
		require.NoError(t, err)
	}
	pageKey := func(tag string) string { return cache.Key(tag, "1", "10") }
	summaryKey := func(tag string) string { return cache.Key(tag, "count") }
	for _, name := range []string{"x", "y", "z"} {
		_, found, _ := env.store.Get(ctx, NamespaceTagListing, pageKey(name))
		require.True(t, found, "listing of %q should be cached", name)
	}

	env.create(t, "new", "x, Y", nil)

	for _, name := range []string{"x", "y"} {
		for _, key := range []string{pageKey(name), summaryKey(name)} {
			_, found, _ := env.store.Get(ctx, NamespaceTagListing, key)
			assert.False(t, found, "entry %q of %q should be evicted", key, name)
		}
	}
	for _, key := range []string{pageKey("z"), summaryKey("z")} {
		_, found, _ := env.store.Get(ctx, NamespaceTagListing, key)
		assert.True(t, found, "entry %q of z should survive", key)
	}

	listing, err := env.tags.Pastes(ctx, "x", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Page.ItemCount)
}

func TestCreate_ClearsListingAndCloud(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "seed", "go", nil)
	ctx := context.Background()

	_, err := env.pastes.List(ctx, ListQuery{Page: 1})
	require.NoError(t, err)
	_, err = env.pastes.List(ctx, ListQuery{Page: 1, TodayOnly: true})
	require.NoError(t, err)
	_, err = env.tags.Cloud(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, env.store.entries(NamespaceListing), "count and page for each filter")
	require.Equal(t, 1, env.store.entries(NamespaceTagCloud))

	env.create(t, "untagged", "", nil)

	assert.Equal(t, 0, env.store.entries(NamespaceListing))
	assert.Equal(t, 0, env.store.entries(NamespaceTagCloud))
}

// failingStore fails every operation, like an unreachable Redis.
type failingStore struct{}

func (failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Remove(context.Context, string, string) error {
	return errors.New("connection refused")
}
func (failingStore) Clear(context.Context, string) error { return errors.New("connection refused") }

func TestCreate_SucceedsWhenCacheIsDown(t *testing.T) {
	repo := newMockRepo()
	logger := testLogger()
	c := cache.New(failingStore{}, logger)
	registry := highlight.NewRegistry()
	ps := NewPasteService(repo, registry, highlight.NewHighlighter(registry, "", 0), c, logger, Options{})
	ts := NewTagService(repo, c, logger, Options{})
	ctx := context.Background()

	p, err := ps.Create(ctx, model.NewPaste{Title: "t", Language: "go", Code: "package main", Tags: "go"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	page, err := ps.List(ctx, ListQuery{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, page.ItemCount)

	listing, err := ts.Pastes(ctx, "go", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Page.ItemCount)
}
