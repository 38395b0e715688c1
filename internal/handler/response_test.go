package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pastie/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        apperror.ValidationFailed("title", "title is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
			wantMsg:    "title is required",
		},
		{
			name:       "not found, wrapped",
			err:        fmt.Errorf("loading: %w", apperror.NotFound("paste", 7)),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
			wantMsg:    "paste not found with id 7",
		},
		{
			name:       "integrity",
			err:        apperror.DepthExceeded("paste", 3, 256),
			wantStatus: http.StatusInternalServerError,
			wantType:   "integrity_error",
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("sqlite: disk I/O error at /var/lib/pastie.db"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
			wantMsg:    "An internal error occurred",
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantType, resp.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
		})
	}
}

func TestWriteError_IncludesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, slog.New(slog.NewTextHandler(io.Discard, nil)), apperror.ValidationFailed("parentId", "bad"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "parentId", resp.Field)
}
