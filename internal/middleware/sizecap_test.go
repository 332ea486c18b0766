package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/middleware"
)

type echoInput struct {
	Body struct {
		Data string `json:"data"`
	}
}

func setupSizeCapAPI(t *testing.T, maxBytes int64) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	router.Use(middleware.SizeCap(maxBytes))

	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	huma.Post(api, "/echo", func(_ context.Context, in *echoInput) (*testOutput, error) {
		return &testOutput{Body: in.Body.Data}, nil
	})

	return router
}

func TestSizeCap(t *testing.T) {
	t.Run("lets a small body reach the handler unchanged", func(t *testing.T) {
		router := setupSizeCapAPI(t, 1024)

		req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"data":"hello"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "hello")
	})

	t.Run("rejects a body over the cap instead of silently emptying it", func(t *testing.T) {
		router := setupSizeCapAPI(t, 16)

		oversized := `{"data":"` + string(bytes.Repeat([]byte("x"), 64)) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(oversized))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// huma's own body-decode error handling takes over once
		// http.MaxBytesReader's limit is hit; the request must not succeed
		// as if the oversized body had been silently discarded.
		assert.NotEqual(t, http.StatusOK, w.Code)
	})
}
