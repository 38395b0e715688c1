package service

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/highlight"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/repository"
	"github.com/sakif/pastie/internal/tags"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// mockRepo implements both repository interfaces in memory, the same way
// sqlite.DB does for real. It counts listing queries so tests can tell a
// cache hit from a recomputation.

type mockRepo struct {
	pastes    map[int64]*model.Paste
	tags      []model.Tag
	nextID    int64
	nextTagID int64

	listCalls   int // Pastes() calls
	taggedCalls int // Tagged() calls
	countCalls  int // Counts() calls
}

var (
	_ repository.PasteRepository = (*mockRepo)(nil)
	_ repository.TagRepository   = (*mockRepo)(nil)
)

func newMockRepo() *mockRepo {
	return &mockRepo{pastes: make(map[int64]*model.Paste)}
}

func (m *mockRepo) Create(ctx context.Context, paste *model.Paste, tagNames []string) error {
	resolved, err := m.resolveTags(tagNames)
	if err != nil {
		return err
	}
	m.nextID++
	paste.ID = m.nextID
	model.SortTags(resolved)
	paste.Tags = resolved

	stored := *paste
	m.pastes[paste.ID] = &stored
	return nil
}

// put stores a paste as-is, bypassing every check. Used to build broken
// parent chains.
func (m *mockRepo) put(p model.Paste) {
	if p.Tags == nil {
		p.Tags = []model.Tag{}
	}
	m.pastes[p.ID] = &p
	m.nextID = max(m.nextID, p.ID)
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*model.Paste, error) {
	p, ok := m.pastes[id]
	if !ok {
		return nil, apperror.NotFound("paste", id)
	}
	result := *p
	return &result, nil
}

// sorted returns the pastes matching keep, newest first.
func (m *mockRepo) sorted(keep func(*model.Paste) bool) []model.Paste {
	out := []model.Paste{}
	for _, p := range m.pastes {
		if keep(p) {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b model.Paste) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out
}

func (m *mockRepo) Pastes(filter repository.ListFilter) paginate.Collection[model.Paste] {
	m.listCalls++
	return paginate.Slice(m.sorted(func(p *model.Paste) bool {
		if !filter.Since.IsZero() && p.Date.Before(filter.Since) {
			return false
		}
		if !filter.Until.IsZero() && !p.Date.Before(filter.Until) {
			return false
		}
		return true
	}))
}

func (m *mockRepo) Children(_ context.Context, id int64) ([]model.Paste, error) {
	return m.sorted(func(p *model.Paste) bool {
		return p.ParentID != nil && *p.ParentID == id
	}), nil
}

func (m *mockRepo) Recent(_ context.Context, limit int) ([]model.Paste, error) {
	all := m.sorted(func(*model.Paste) bool { return true })
	return all[:min(limit, len(all))], nil
}

func (m *mockRepo) resolveTags(names []string) ([]model.Tag, error) {
	out := []model.Tag{}
	for _, name := range names {
		tag, ok := m.findTag(name)
		if !ok {
			m.nextTagID++
			tag = model.Tag{ID: m.nextTagID, Name: name}
			m.tags = append(m.tags, tag)
		}
		out = append(out, tag)
	}
	return out, nil
}

func (m *mockRepo) findTag(name string) (model.Tag, bool) {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return model.Tag{}, false
}

func (m *mockRepo) GetByName(_ context.Context, name string) (*model.Tag, error) {
	tag, ok := m.findTag(name)
	if !ok {
		return nil, apperror.NotFound("tag", name)
	}
	return &tag, nil
}

func (m *mockRepo) Names(context.Context) ([]string, error) {
	names := []string{}
	for _, t := range m.tags {
		names = append(names, t.Name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names, nil
}

func (m *mockRepo) Counts(context.Context) ([]tags.Count, error) {
	m.countCalls++
	counts := []tags.Count{}
	for _, t := range m.tags {
		n := len(m.taggedWith(t.ID))
		if n > 0 {
			counts = append(counts, tags.Count{Name: t.Name, Count: n})
		}
	}
	return counts, nil
}

func (m *mockRepo) taggedWith(tagID int64) []model.Paste {
	return m.sorted(func(p *model.Paste) bool {
		return slices.ContainsFunc(p.Tags, func(t model.Tag) bool { return t.ID == tagID })
	})
}

func (m *mockRepo) Tagged(name string) paginate.Collection[model.Paste] {
	m.taggedCalls++
	tag, ok := m.findTag(name)
	if !ok {
		return paginate.Slice([]model.Paste{})
	}
	return paginate.Slice(m.taggedWith(tag.ID))
}

// =========================================================================
// TEST HELPERS
// =========================================================================

var testNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingStore is a MemoryStore that remembers which keys are live in
// each namespace, so tests can count cache entries.
type recordingStore struct {
	*cache.MemoryStore
	live map[string]map[string]bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore(), live: make(map[string]map[string]bool)}
}

func (s *recordingStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if s.live[namespace] == nil {
		s.live[namespace] = make(map[string]bool)
	}
	s.live[namespace][key] = true
	return s.MemoryStore.Set(ctx, namespace, key, value, ttl)
}

func (s *recordingStore) Remove(ctx context.Context, namespace, key string) error {
	for k := range s.live[namespace] {
		if k == key || strings.HasPrefix(k, key+cache.Separator) {
			delete(s.live[namespace], k)
		}
	}
	return s.MemoryStore.Remove(ctx, namespace, key)
}

func (s *recordingStore) Clear(ctx context.Context, namespace string) error {
	delete(s.live, namespace)
	return s.MemoryStore.Clear(ctx, namespace)
}

// entries is the number of keys written to namespace and not evicted since.
func (s *recordingStore) entries(namespace string) int {
	return len(s.live[namespace])
}

type testEnv struct {
	pastes *PasteService
	tags   *TagService
	repo   *mockRepo
	store  *recordingStore
}

// newTestEnv wires both services to one mock repository and one in-memory
// cache, with the clock fixed at testNow.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMockRepo()
	logger := testLogger()
	store := newRecordingStore()
	c := cache.New(store, logger)
	registry := highlight.NewRegistry()
	opts := Options{PerPage: 10}

	ps := NewPasteService(repo, registry, highlight.NewHighlighter(registry, "", 0), c, logger, opts)
	ps.now = func() time.Time { return testNow }

	return &testEnv{
		pastes: ps,
		tags:   NewTagService(repo, c, logger, opts),
		repo:   repo,
		store:  store,
	}
}

func (e *testEnv) create(t *testing.T, title, tagInput string, parent *int64) *model.Paste {
	t.Helper()
	p, err := e.pastes.Create(context.Background(), model.NewPaste{
		Author:   "tester",
		Title:    title,
		Language: "python",
		Code:     "print('" + title + "')",
		Tags:     model.TagInput(tagInput),
		ParentID: parent,
	})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return p
}
