// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite is the production implementation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/tags"
)

// ListFilter narrows a paste listing. Zero values mean "no bound".
type ListFilter struct {
	Since time.Time // inclusive
	Until time.Time // exclusive
}

type PasteRepository interface {
	// Create stores paste and its tags atomically, filling in ID and Tags.
	Create(ctx context.Context, paste *model.Paste, tagNames []string) error
	GetByID(ctx context.Context, id int64) (*model.Paste, error)
	// Pastes is the listing ordered newest first.
	Pastes(filter ListFilter) paginate.Collection[model.Paste]
	Children(ctx context.Context, id int64) ([]model.Paste, error)
	Recent(ctx context.Context, limit int) ([]model.Paste, error)
}

type TagRepository interface {
	GetByName(ctx context.Context, name string) (*model.Tag, error)
	Names(ctx context.Context) ([]string, error)
	// Counts returns, for every tag in use, the number of pastes carrying it.
	Counts(ctx context.Context) ([]tags.Count, error)
	// Tagged is the listing of pastes carrying the tag, newest first.
	Tagged(name string) paginate.Collection[model.Paste]
}
