package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/service"
	"github.com/sakif/pastie/internal/tags"
)

// stubTagService records the tag name it was asked for.
type stubTagService struct {
	gotName string
	gotPage int
}

func (s *stubTagService) Cloud(context.Context) ([]tags.Weight, error) { return nil, nil }
func (s *stubTagService) Names(context.Context) ([]string, error)      { return nil, nil }

func (s *stubTagService) Pastes(ctx context.Context, name string, page, perPage int) (*service.TagListing, error) {
	s.gotName, s.gotPage = name, page
	items := make([]model.Paste, 45)
	p, err := paginate.New(ctx, paginate.Slice(items), paginate.Request{Page: page, PerPage: 20})
	if err != nil {
		return nil, err
	}
	return &service.TagListing{Tag: model.Tag{ID: 1, Name: name}, Page: p}, nil
}

func newTagRouter(svc TagService) http.Handler {
	h := NewTagHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Get("/api/tags/{name}", h.HandleTagged)
	return r
}

func TestHandleTagged_DecodesNameOnce(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain", "/api/tags/golang", "golang"},
		{"escaped percent stays literal", "/api/tags/a%2541", "a%41"},
		{"escaped plus", "/api/tags/c%2B%2B", "c++"},
		{"escaped slash", "/api/tags/a%2Fb", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubTagService{}
			rr := httptest.NewRecorder()
			newTagRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, svc.gotName)
		})
	}
}

func TestHandleTagged_PreviousAndNext(t *testing.T) {
	svc := &stubTagService{}
	rr := httptest.NewRecorder()
	newTagRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tags/go?page=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TagPageResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, svc.gotPage)
	assert.Equal(t, "go", resp.Tag)
	assert.Equal(t, 1, resp.Previous)
	assert.Equal(t, 3, resp.Next)

	rr = httptest.NewRecorder()
	newTagRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tags/go?page=3", nil))
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Previous)
	assert.Equal(t, paginate.NoPage, resp.Next)
}
