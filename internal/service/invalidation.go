package service

import (
	"context"
	"log/slog"

	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/tags"
)

// Cache namespaces. Each names one family of cached views.
const (
	// NamespaceListing holds listing pages, keyed by page, page size and date filter.
	NamespaceListing = "pastes.list"
	// NamespaceTagCloud holds the tag cloud under cache.StaticKey.
	NamespaceTagCloud = "tags.cloud"
	// NamespaceTagListing holds per-tag listing pages, keyed by
	// cache.Key(canonical tag name, page, page size).
	NamespaceTagListing = "tags.pastes"
)

// Invalidator evicts the cached views a write makes stale.
//
// WHAT A NEW PASTE CHANGES:
//   - every listing page (pages shift by one)   → clear NamespaceListing
//   - the tag cloud (counts change)             → clear NamespaceTagCloud
//   - the listings of the paste's own tags only → remove those subkeys
//
// Listings of other tags stay cached.
type Invalidator struct {
	cache  *cache.Cache
	logger *slog.Logger
}

func NewInvalidator(c *cache.Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// PasteCreated runs synchronously after a paste is stored. A failing cache
// is logged and skipped: the paste is already committed, and stale entries
// expire on their own.
func (inv *Invalidator) PasteCreated(ctx context.Context, paste *model.Paste) {
	inv.clear(ctx, NamespaceListing)
	inv.clear(ctx, NamespaceTagCloud)

	for _, tag := range paste.Tags {
		subkey := tags.Canonical(tag.Name)
		if err := inv.cache.Remove(ctx, NamespaceTagListing, subkey); err != nil {
			inv.logger.Warn("cache invalidation failed",
				slog.String("namespace", NamespaceTagListing),
				slog.String("tag", tag.Name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (inv *Invalidator) clear(ctx context.Context, namespace string) {
	if err := inv.cache.Clear(ctx, namespace); err != nil {
		inv.logger.Warn("cache invalidation failed",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	}
}
