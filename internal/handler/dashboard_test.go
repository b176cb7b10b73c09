package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

type testEnv struct {
	router    chi.Router
	repo      *board.MemoryRepository
	filterID  uuid.UUID
	dashboard types.Dashboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := schema.NewRegistry()
	reg.Register(schema.NewCollection("crm.lead", "Lead", "crm_lead",
		&schema.FieldMeta{Name: "name", Label: "Name", Type: schema.FieldChar, Stored: true},
		&schema.FieldMeta{Name: "stage", Label: "Stage", Type: schema.FieldChar, Stored: true},
		&schema.FieldMeta{Name: "revenue", Label: "Expected Revenue", Type: schema.FieldFloat, Stored: true},
	))
	st := store.NewMemoryStore(reg)
	st.Insert("crm.lead",
		types.Record{"id": int64(1), "name": "Acme", "stage": "won", "revenue": 100.0},
		types.Record{"id": int64(2), "name": "Globex", "stage": "lost", "revenue": 40.0},
		types.Record{"id": int64(3), "name": "Initech", "stage": "won", "revenue": 60.0},
	)

	repo := board.NewMemoryRepository()
	env := &testEnv{repo: repo}
	env.filterID = repo.PutFilter(types.Filter{
		Name:       "Leads by stage",
		Collection: "crm.lead",
		Domain:     "[]",
		Context:    "{'graph_groupbys': ['stage'], 'graph_measure': 'revenue'}",
	}).ID
	listID := repo.PutFilter(types.Filter{Name: "All leads", Collection: "crm.lead"}).ID
	env.dashboard = repo.PutDashboard(types.Dashboard{
		Name:   "Sales",
		Active: true,
		Lines: []types.Line{
			{Name: "Leads", Sequence: 2, FilterID: listID, DisplayMode: "list", Width: "full"},
			{Name: "Revenue", Sequence: 1, FilterID: env.filterID, GraphChartType: "pie"},
			{Name: "Broken", Sequence: 3, FilterID: uuid.New()},
		},
	})
	repo.PutDashboard(types.Dashboard{Name: "Archive", Active: false})

	svc := render.NewService(repo, reg, st, options.NewResolver(nil, options.Defaults{}, nil), nil, render.Config{})
	h := NewDashboardHandler(repo, reg, svc, zap.NewNop())
	env.router = chi.NewRouter()
	env.router.Use(Recovery(zap.NewNop()), Logging(zap.NewNop()))
	h.Routes(env.router)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestFilterData_Post(t *testing.T) {
	env := newTestEnv(t)

	rec, out := env.do(t, http.MethodPost, "/v1/filters/"+env.filterID.String()+"/data",
		`{"overrides": {"graph_chart_type": "line", "pivot_sort_by": "total", "pivot_sort_order": "desc", "domain": "ignored"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "graph", out["type"])
	assert.Equal(t, "line", out["chart_type"])

	data := out["data"].(map[string]any)
	assert.Equal(t, []any{"won", "lost"}, data["labels"])
	ds := data["datasets"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{160.0, 40.0}, ds["data"])
}

func TestFilterData_PostEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rec, out := env.do(t, http.MethodPost, "/v1/filters/"+env.filterID.String()+"/data", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bar", out["chart_type"])
}

func TestFilterData_Get(t *testing.T) {
	env := newTestEnv(t)
	rec, out := env.do(t, http.MethodGet, "/v1/filters/"+env.filterID.String()+"/data?view_type_hint=list&row_limit=2&bogus=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list", out["type"])
	assert.Len(t, out["data"], 2)
	assert.Equal(t, 3.0, out["count"])
}

func TestFilterData_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec, out := env.do(t, http.MethodPost, "/v1/filters/"+uuid.NewString()+"/data", "{}")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"error": render.MsgFilterNotFound}, out)

	rec, out = env.do(t, http.MethodPost, "/v1/filters/nope/data", "{}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", out["code"])

	rec, out = env.do(t, http.MethodPost, "/v1/filters/"+env.filterID.String()+"/data", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", out["code"])

	rec, _ = env.do(t, http.MethodGet, "/v1/filters/"+env.filterID.String()+"/data?line_id=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboards(t *testing.T) {
	env := newTestEnv(t)

	_, out := env.do(t, http.MethodGet, "/v1/dashboards", "")
	assert.Len(t, out["dashboards"], 1)

	_, out = env.do(t, http.MethodGet, "/v1/dashboards?all=true", "")
	assert.Len(t, out["dashboards"], 2)

	rec, out := env.do(t, http.MethodGet, "/v1/dashboards/"+env.dashboard.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sales", out["name"])
	lines := out["lines"].([]any)
	require.Len(t, lines, 3)
	assert.Equal(t, "Revenue", lines[0].(map[string]any)["name"])

	rec, out = env.do(t, http.MethodGet, "/v1/dashboards/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out["code"])
}

func TestDashboardData(t *testing.T) {
	env := newTestEnv(t)

	rec, out := env.do(t, http.MethodGet, "/v1/dashboards/"+env.dashboard.ID.String()+"/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := out["lines"].([]any)
	require.Len(t, lines, 3)

	first := lines[0].(map[string]any)
	assert.Equal(t, "Revenue", first["name"])
	assert.Equal(t, "pie", first["payload"].(map[string]any)["chart_type"])

	second := lines[1].(map[string]any)
	assert.Equal(t, "full", second["width"])
	assert.Equal(t, "list", second["payload"].(map[string]any)["type"])

	third := lines[2].(map[string]any)
	assert.Equal(t, map[string]any{"error": render.MsgFilterNotFound}, third["payload"])
}

func TestCollectionFields(t *testing.T) {
	env := newTestEnv(t)

	rec, out := env.do(t, http.MethodGet, "/v1/collections/crm.lead/fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lead", out["label"])
	fields := out["fields"].([]any)
	require.Len(t, fields, 3)
	assert.Equal(t, "revenue", fields[2].(map[string]any)["name"])
	assert.Equal(t, "float", fields[2].(map[string]any)["type"])
	assert.Equal(t, []any{}, out["default_columns"])

	rec, _ = env.do(t, http.MethodGet, "/v1/collections/nope/fields", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Recovery(zap.NewNop()))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
