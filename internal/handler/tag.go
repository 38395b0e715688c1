package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/service"
	"github.com/sakif/pastie/internal/tags"
)

// TagService is what TagHandler needs from service.TagService.
type TagService interface {
	Cloud(ctx context.Context) ([]tags.Weight, error)
	Pastes(ctx context.Context, name string, page, perPage int) (*service.TagListing, error)
	Names(ctx context.Context) ([]string, error)
}

// TagHandler serves /api/tags.
type TagHandler struct {
	tags   TagService
	logger *slog.Logger
}

func NewTagHandler(tags TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// TagPageResponse is one page of a tag's pastes.
type TagPageResponse struct {
	Tag string `json:"tag"`
	PageResponse
}

// HandleCloud returns the weighted tag cloud.
//
// HTTP: GET /api/tags
func (h *TagHandler) HandleCloud(w http.ResponseWriter, r *http.Request) {
	cloud, err := h.tags.Cloud(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cloud)
}

// HandleNames returns every tag name.
//
// HTTP: GET /api/tags/names
func (h *TagHandler) HandleNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.tags.Names(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// HandleTagged returns one page of the pastes carrying a tag.
//
// HTTP: GET /api/tags/{name}?page=N
func (h *TagHandler) HandleTagged(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi matches on RawPath when the request has one, and then the
	// parameter is still escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	page := paginate.ParsePage(r.URL.Query().Get("page"))
	listing, err := h.tags.Pastes(r.Context(), name, page, 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TagPageResponse{
		Tag:          listing.Tag.Name,
		PageResponse: newPageResponse(listing.Page),
	})
}
