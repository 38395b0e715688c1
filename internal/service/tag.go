package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/repository"
	"github.com/sakif/pastie/internal/tags"
)

// TagService serves the tag cloud and per-tag listings.
type TagService struct {
	tags   repository.TagRepository
	cache  *cache.Cache
	logger *slog.Logger
	opts   Options
}

func NewTagService(repo repository.TagRepository, c *cache.Cache, logger *slog.Logger, opts Options) *TagService {
	return &TagService{
		tags:   repo,
		cache:  c,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Cloud returns every tag in use with its weight, sorted by name.
func (s *TagService) Cloud(ctx context.Context) ([]tags.Weight, error) {
	return cache.GetOrCompute(ctx, s.cache, NamespaceTagCloud, cache.StaticKey, s.opts.TagCloudTTL,
		func(ctx context.Context) ([]tags.Weight, error) {
			counts, err := s.tags.Counts(ctx)
			if err != nil {
				s.logger.Error("failed to count tags", slog.String("error", err.Error()))
				return nil, fmt.Errorf("building tag cloud: %w", err)
			}
			return tags.Weights(counts), nil
		})
}

// TagListing is one page of the pastes carrying a tag.
type TagListing struct {
	Tag  model.Tag                   `json:"tag"`
	Page *paginate.Page[model.Paste] `json:"page"`
}

// tagSummary is the cached head of a tag listing: the stored tag and how
// many pastes carry it.
type tagSummary struct {
	Tag   model.Tag `json:"tag"`
	Count int       `json:"count"`
}

// countKey is the summary's subkey under a tag's canonical name. It never
// collides with a page key, which always has three parts.
const countKey = "count"

// Pastes returns one page of the pastes tagged name. An unknown tag is
// apperror.ErrNotFound.
//
// Every cache key starts with the tag's canonical name, so "Go" and "go"
// share entries and the Invalidator can drop every entry of one tag with a
// single subkey removal. Pages are keyed by the clamped page number, so
// out-of-range requests share the last page's entry.
func (s *TagService) Pastes(ctx context.Context, name string, page, perPage int) (*TagListing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	if perPage <= 0 {
		perPage = s.opts.PerPage
	}
	canonical := tags.Canonical(name)

	summary, err := cache.GetOrCompute(ctx, s.cache, NamespaceTagListing, cache.Key(canonical, countKey), s.opts.ListTTL,
		func(ctx context.Context) (tagSummary, error) {
			tag, err := s.tags.GetByName(ctx, name)
			if err != nil {
				return tagSummary{}, err
			}
			n, err := s.tags.Tagged(tag.Name).Count(ctx)
			if err != nil {
				return tagSummary{}, fmt.Errorf("counting pastes tagged %q: %w", tag.Name, err)
			}
			return tagSummary{Tag: *tag, Count: n}, nil
		})
	if err != nil {
		return nil, err
	}

	req := paginate.Request{Page: max(page, 1), PerPage: perPage, ItemCount: paginate.Count(summary.Count)}
	build := func(ctx context.Context) (*TagListing, error) {
		p, err := paginate.New(ctx, s.tags.Tagged(summary.Tag.Name), req)
		if err != nil {
			return nil, fmt.Errorf("listing pastes tagged %q: %w", summary.Tag.Name, err)
		}
		return &TagListing{Tag: summary.Tag, Page: p}, nil
	}
	if summary.Count == 0 {
		return build(ctx)
	}

	req.Page = paginate.Clamp(page, summary.Count, perPage)
	key := cache.Key(canonical, strconv.Itoa(req.Page), strconv.Itoa(perPage))
	return cache.GetOrCompute(ctx, s.cache, NamespaceTagListing, key, s.opts.ListTTL, build)
}

// Names returns every tag name, for autocompletion.
func (s *TagService) Names(ctx context.Context) ([]string, error) {
	names, err := s.tags.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tag names: %w", err)
	}
	return names, nil
}
