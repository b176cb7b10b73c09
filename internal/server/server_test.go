package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/seed"
	"github.com/matthewbaird/dashboard/internal/store"
)

func TestRouter(t *testing.T) {
	res, err := seed.Demo()
	require.NoError(t, err)
	st := store.NewMemoryStore(res.Registry)
	res.Populate(st)
	svc := render.NewService(res.Repository, res.Registry, st, options.NewResolver(nil, options.Defaults{}, nil), nil, render.Config{})
	h := Router(Config{Repo: res.Repository, Catalog: res.Registry, Render: svc})

	tests := []struct {
		path string
		code int
	}{
		{"/healthz", http.StatusOK},
		{"/v1/dashboards", http.StatusOK},
		{"/v1/dashboards/not-a-uuid", http.StatusBadRequest},
		{"/v1/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	for key, id := range res.Dashboards {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/"+id.String()+"/data", nil))
		assert.Equal(t, http.StatusOK, rec.Code, key)
		assert.NotContains(t, rec.Body.String(), `"error"`, key)
	}
}
