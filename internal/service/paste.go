// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, caches, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// The services take repository INTERFACES, not *sqlite.DB. Tests pass an
// in-memory fake (see mock_test.go); main.go passes SQLite.
//
// CACHING:
// Read paths go through cache.GetOrCompute. Write paths call the Invalidator
// before returning, so a client that just created a paste sees it in the
// next listing it requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/highlight"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/repository"
	"github.com/sakif/pastie/internal/tags"
	"github.com/sakif/pastie/internal/validation"
)

const (
	// MaxTreeDepth bounds every walk along parent links. A reply chain this
	// deep is treated as corrupt data rather than followed further.
	MaxTreeDepth = 256
	// DefaultRecent is how many pastes Recent returns when asked for none.
	DefaultRecent = 5
)

// Options carries the tunables both services share.
type Options struct {
	PerPage     int           // listing page size
	ListTTL     time.Duration // listing and per-tag listing pages
	TagCloudTTL time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PerPage:     paginate.DefaultPerPage,
		ListTTL:     45 * time.Second,
		TagCloudTTL: 120 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PerPage <= 0 {
		o.PerPage = d.PerPage
	}
	if o.ListTTL == 0 {
		o.ListTTL = d.ListTTL
	}
	if o.TagCloudTTL == 0 {
		o.TagCloudTTL = d.TagCloudTTL
	}
	return o
}

// LanguageRegistry is the part of highlight.Registry the service needs.
type LanguageRegistry interface {
	IsKnown(language string) bool
	Detect(filename, mimetype, code string) string
}

// PasteService handles creating, listing, rendering and comparing pastes.
type PasteService struct {
	pastes      repository.PasteRepository
	languages   LanguageRegistry
	highlighter *highlight.Highlighter
	cache       *cache.Cache
	invalidator *Invalidator
	validator   *validation.Validator
	logger      *slog.Logger
	opts        Options

	// now is time.Now outside tests.
	now func() time.Time
}

func NewPasteService(
	pastes repository.PasteRepository,
	languages LanguageRegistry,
	highlighter *highlight.Highlighter,
	c *cache.Cache,
	logger *slog.Logger,
	opts Options,
) *PasteService {
	return &PasteService{
		pastes:      pastes,
		languages:   languages,
		highlighter: highlighter,
		cache:       c,
		invalidator: NewInvalidator(c, logger),
		validator:   validation.New(),
		logger:      logger,
		opts:        opts.withDefaults(),
		now:         time.Now,
	}
}

// Create validates and stores a new paste, then evicts the cached views it
// makes stale.
//
// An empty language is detected from the filename and MIME type hints, then
// from the code itself, falling back to plain text.
//
// Order of checks: field rules (required, lengths), then the language, then
// the parent. Only the first failure is reported.
func (s *PasteService) Create(ctx context.Context, in model.NewPaste) (*model.Paste, error) {
	in.Author = strings.TrimSpace(in.Author)
	if in.Author == "" {
		in.Author = model.DefaultAuthor
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Language = strings.ToLower(strings.TrimSpace(in.Language))
	// Code keeps its whitespace, but whitespace alone is not code.
	if strings.TrimSpace(in.Code) == "" {
		in.Code = ""
	}
	if in.Language == "" {
		in.Language = s.languages.Detect(in.Filename, in.Mimetype, in.Code)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if !s.languages.IsKnown(in.Language) {
		return nil, apperror.ValidationFailed("language",
			fmt.Sprintf("language %q is not supported", in.Language))
	}
	if in.ParentID != nil {
		if _, err := s.pastes.GetByID(ctx, *in.ParentID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("parentId",
					fmt.Sprintf("parent paste %d does not exist", *in.ParentID))
			}
			return nil, fmt.Errorf("checking parent paste: %w", err)
		}
	}

	paste := &model.Paste{
		Author:   in.Author,
		Title:    in.Title,
		Language: in.Language,
		Code:     in.Code,
		Date:     s.now().UTC(),
		ParentID: in.ParentID,
	}
	if err := s.pastes.Create(ctx, paste, tags.ParseNames(string(in.Tags))); err != nil {
		s.logger.Error("failed to create paste",
			slog.String("title", paste.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating paste: %w", err)
	}

	s.invalidator.PasteCreated(ctx, paste)

	s.logger.Info("paste created",
		slog.Int64("id", paste.ID),
		slog.String("language", paste.Language),
		slog.Int("tags", len(paste.Tags)),
	)
	return paste, nil
}

// ParseID converts a path segment to a paste id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", fmt.Sprintf("invalid paste id %q", raw))
	}
	return id, nil
}

// Get returns one paste, or apperror.ErrNotFound.
func (s *PasteService) Get(ctx context.Context, id int64) (*model.Paste, error) {
	return s.pastes.GetByID(ctx, id)
}

// ListQuery selects one listing page.
type ListQuery struct {
	Page      int
	PerPage   int  // 0 means the configured page size
	TodayOnly bool // only pastes dated on the current UTC day
}

// List returns one page of the newest-first listing.
//
// CACHE KEYS:
// The listing caches two kinds of entry, both keyed by a hash of the
// normalized query arguments (cache.ArgsKey):
//
//	{restrict}                 → item count
//	{page, perPage, restrict}  → the page itself
//
// The count comes first so the page key can use the clamped page number:
// ?page=2 and ?page=5000 past the end share the last page's entry. The
// "today" filter carries the date, so a page cached just before midnight is
// not served for the next day.
func (s *PasteService) List(ctx context.Context, q ListQuery) (*paginate.Page[model.Paste], error) {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = s.opts.PerPage
	}

	filter := repository.ListFilter{}
	restrict := "all"
	if q.TodayOnly {
		start := s.now().UTC().Truncate(24 * time.Hour)
		filter = repository.ListFilter{Since: start, Until: start.AddDate(0, 0, 1)}
		restrict = "today:" + start.Format(time.DateOnly)
	}

	args := url.Values{"restrict": {restrict}}
	count, err := cache.GetOrCompute(ctx, s.cache, NamespaceListing, cache.ArgsKey(args), s.opts.ListTTL,
		func(ctx context.Context) (int, error) {
			return s.pastes.Pastes(filter).Count(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("counting pastes: %w", err)
	}

	req := paginate.Request{Page: max(q.Page, 1), PerPage: perPage, ItemCount: paginate.Count(count)}
	if count == 0 {
		// Nothing to load, and nothing worth caching per requested page.
		return paginate.New(ctx, s.pastes.Pastes(filter), req)
	}

	req.Page = paginate.Clamp(q.Page, count, perPage)
	args.Set("page", strconv.Itoa(req.Page))
	args.Set("perPage", strconv.Itoa(perPage))
	return cache.GetOrCompute(ctx, s.cache, NamespaceListing, cache.ArgsKey(args), s.opts.ListTTL,
		func(ctx context.Context) (*paginate.Page[model.Paste], error) {
			return paginate.New(ctx, s.pastes.Pastes(filter), req)
		})
}

// Recent returns the n newest pastes.
func (s *PasteService) Recent(ctx context.Context, n int) ([]model.Paste, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	return s.pastes.Recent(ctx, n)
}

// ResolveRoot follows parent links from id up to the paste that has none.
//
// The walk is iterative and bounded: more than MaxTreeDepth steps, or a
// paste seen twice, means the stored chain is broken and the result is an
// apperror.ErrIntegrity error.
func (s *PasteService) ResolveRoot(ctx context.Context, id int64) (*model.Paste, error) {
	paste, err := s.pastes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{paste.ID: true}
	for steps := 0; paste.HasParent(); steps++ {
		parentID := *paste.ParentID
		if steps >= MaxTreeDepth || visited[parentID] {
			s.logger.Error("broken reply chain",
				slog.Int64("start", id),
				slog.Int64("at", paste.ID),
				slog.Int("steps", steps),
			)
			return nil, apperror.DepthExceeded("paste", id, MaxTreeDepth)
		}
		visited[parentID] = true

		paste, err = s.pastes.GetByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("resolving root of paste %d: %w", id, err)
		}
	}
	return paste, nil
}

// Children returns the direct replies to id, newest first.
func (s *PasteService) Children(ctx context.Context, id int64) ([]model.Paste, error) {
	if _, err := s.pastes.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.pastes.Children(ctx, id)
}

// Tree returns the whole reply tree id belongs to, starting at its root.
func (s *PasteService) Tree(ctx context.Context, id int64) (*model.PasteNode, error) {
	root, err := s.ResolveRoot(ctx, id)
	if err != nil {
		return nil, err
	}
	node, err := s.buildTree(ctx, *root, 0)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *PasteService) buildTree(ctx context.Context, paste model.Paste, depth int) (model.PasteNode, error) {
	if depth > MaxTreeDepth {
		return model.PasteNode{}, apperror.DepthExceeded("paste", paste.ID, MaxTreeDepth)
	}
	children, err := s.pastes.Children(ctx, paste.ID)
	if err != nil {
		return model.PasteNode{}, fmt.Errorf("loading replies to %d: %w", paste.ID, err)
	}

	node := model.PasteNode{Paste: paste, Replies: make([]model.PasteNode, 0, len(children))}
	for _, child := range children {
		reply, err := s.buildTree(ctx, child, depth+1)
		if err != nil {
			return model.PasteNode{}, err
		}
		node.Replies = append(node.Replies, reply)
	}
	return node, nil
}

// Highlighted is a paste with its rendered markup.
type Highlighted struct {
	Paste  *model.Paste `json:"paste"`
	Markup string       `json:"markup"`
}

// Highlight renders a paste. truncate > 0 shortens long code first, the
// way listings show a preview.
func (s *PasteService) Highlight(ctx context.Context, id int64, truncate int) (*Highlighted, error) {
	paste, err := s.pastes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	code := highlight.Truncate(paste.Code, truncate)
	return &Highlighted{
		Paste:  paste,
		Markup: s.highlighter.Highlight(code, paste.Language),
	}, nil
}

// StyleSheet returns the CSS for highlighted markup.
func (s *PasteService) StyleSheet() (string, error) {
	return s.highlighter.CSS()
}

// PasteDiff is the line comparison of two pastes.
type PasteDiff struct {
	From  int64                `json:"from"`
	To    int64                `json:"to"`
	Lines []highlight.DiffLine `json:"lines"`
}

// Diff compares the code of two pastes, from → to.
func (s *PasteService) Diff(ctx context.Context, from, to int64) (*PasteDiff, error) {
	a, b, err := s.pair(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &PasteDiff{From: a.ID, To: b.ID, Lines: highlight.Diff(a.Code, b.Code)}, nil
}

// Unified returns the unified diff of two pastes.
func (s *PasteService) Unified(ctx context.Context, from, to int64) (string, error) {
	a, b, err := s.pair(ctx, from, to)
	if err != nil {
		return "", err
	}
	return highlight.Unified(a.Code, b.Code, pasteFileName(a), pasteFileName(b))
}

func (s *PasteService) pair(ctx context.Context, from, to int64) (*model.Paste, *model.Paste, error) {
	a, err := s.pastes.GetByID(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.pastes.GetByID(ctx, to)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func pasteFileName(p *model.Paste) string {
	return "paste-" + strconv.FormatInt(p.ID, 10)
}
