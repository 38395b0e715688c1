// Package handler contains the HTTP handlers of the JSON API.
//
// Handlers only speak HTTP: they parse path and query parameters, decode
// bodies, call a service and encode the result. Business rules live in
// internal/service.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/highlight"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/service"
)

// MaxBodyBytes caps a create request. Larger bodies fail JSON decoding.
const MaxBodyBytes = 1 << 20

// PasteService is what PasteHandler needs from service.PasteService.
type PasteService interface {
	Create(ctx context.Context, in model.NewPaste) (*model.Paste, error)
	Get(ctx context.Context, id int64) (*model.Paste, error)
	List(ctx context.Context, q service.ListQuery) (*paginate.Page[model.Paste], error)
	Recent(ctx context.Context, n int) ([]model.Paste, error)
	ResolveRoot(ctx context.Context, id int64) (*model.Paste, error)
	Children(ctx context.Context, id int64) ([]model.Paste, error)
	Tree(ctx context.Context, id int64) (*model.PasteNode, error)
	Highlight(ctx context.Context, id int64, truncate int) (*service.Highlighted, error)
	StyleSheet() (string, error)
	Diff(ctx context.Context, from, to int64) (*service.PasteDiff, error)
	Unified(ctx context.Context, from, to int64) (string, error)
}

// LanguageLister exposes the supported languages.
type LanguageLister interface {
	Languages() map[string]string
}

// PasteHandler serves /api/pastes, /api/languages and /api/styles.css.
type PasteHandler struct {
	pastes    PasteService
	languages LanguageLister
	logger    *slog.Logger
}

func NewPasteHandler(pastes PasteService, languages LanguageLister, logger *slog.Logger) *PasteHandler {
	return &PasteHandler{pastes: pastes, languages: languages, logger: logger}
}

// PageResponse is a listing page plus the links of its pager.
// Previous and Next are page numbers, or paginate.NoPage at either end.
type PageResponse struct {
	Page     *paginate.Page[model.Paste] `json:"page"`
	Pager    []paginate.Link             `json:"pager"`
	Previous int                         `json:"previous"`
	Next     int                         `json:"next"`
}

func newPageResponse(page *paginate.Page[model.Paste]) PageResponse {
	return PageResponse{
		Page:     page,
		Pager:    page.Pager(paginate.DefaultPagerOptions()),
		Previous: page.Previous(),
		Next:     page.Next(),
	}
}

// HandleCreate stores a new paste or reply.
//
// HTTP: POST /api/pastes
// REQUEST BODY: {"author":"...","title":"...","language":"python","code":"...","tags":"a, b","parentId":1}
//
// "tags" may also be a list (["a", "b"]). Without "language", the language is
// detected from "filename", "mimetype" or the code.
func (h *PasteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.NewPaste
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid paste JSON", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	paste, err := h.pastes.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/pastes/%d", paste.ID))
	writeJSON(w, http.StatusCreated, paste)
}

// HandleList returns one listing page.
//
// HTTP: GET /api/pastes?page=N&restrict=today
func (h *PasteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.pastes.List(r.Context(), service.ListQuery{
		Page:      paginate.ParsePage(q.Get("page")),
		TodayOnly: q.Get("restrict") == "today",
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

// HandleRecent returns the newest pastes.
//
// HTTP: GET /api/pastes/recent?count=N
func (h *PasteHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	pastes, err := h.pastes.Recent(r.Context(), count)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pastes)
}

// HandleGet returns one paste.
//
// HTTP: GET /api/pastes/{id}
func (h *PasteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	paste, err := h.pastes.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, paste)
}

// HandleHighlight returns a paste with its rendered markup.
//
// HTTP: GET /api/pastes/{id}/highlight?truncate=N
func (h *PasteHandler) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	truncate := highlight.ParseTruncate(r.URL.Query().Get("truncate"))
	out, err := h.pastes.Highlight(r.Context(), id, truncate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleChildren returns the direct replies to a paste.
//
// HTTP: GET /api/pastes/{id}/children
func (h *PasteHandler) HandleChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	children, err := h.pastes.Children(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

// HandleTree returns the reply tree a paste belongs to.
//
// HTTP: GET /api/pastes/{id}/tree
func (h *PasteHandler) HandleTree(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	tree, err := h.pastes.Tree(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// HandleRoot returns the first paste of the thread a paste belongs to.
//
// HTTP: GET /api/pastes/{id}/root
func (h *PasteHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	root, err := h.pastes.ResolveRoot(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// HandleDiff compares two pastes line by line.
//
// HTTP: GET /api/pastes/{id}/diff/{other}
func (h *PasteHandler) HandleDiff(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.diffIDs(w, r)
	if !ok {
		return
	}
	diff, err := h.pastes.Diff(r.Context(), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// HandleUnified downloads the unified diff of two pastes.
//
// HTTP: GET /api/pastes/{id}/diff/{other}/unified
func (h *PasteHandler) HandleUnified(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.diffIDs(w, r)
	if !ok {
		return
	}
	patch, err := h.pastes.Unified(r.Context(), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="paste-%d-%d.diff"`, from, to))
	writeText(w, "text/x-diff; charset=utf-8", patch)
}

// HandleLanguages lists the accepted language identifiers.
//
// HTTP: GET /api/languages
func (h *PasteHandler) HandleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.languages.Languages())
}

// HandleStyleSheet serves the CSS for highlighted markup.
//
// HTTP: GET /api/styles.css
func (h *PasteHandler) HandleStyleSheet(w http.ResponseWriter, _ *http.Request) {
	css, err := h.pastes.StyleSheet()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeText(w, "text/css; charset=utf-8", css)
}

// pathID parses a paste id from the URL. On failure it writes the 400
// response itself and returns false.
func (h *PasteHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := service.ParseID(chi.URLParam(r, param))
	if err != nil {
		writeError(w, h.logger, err)
		return 0, false
	}
	return id, true
}

func (h *PasteHandler) diffIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	from, ok := h.pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	to, ok := h.pathID(w, r, "other")
	if !ok {
		return 0, 0, false
	}
	return from, to, true
}
