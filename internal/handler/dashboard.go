// Dashboard handlers serve rendered filter data and stored dashboard
// configuration over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/types"
)

// DashboardHandler implements HTTP handlers for DashboardService.
type DashboardHandler struct {
	repo    board.Repository
	catalog schema.Catalog
	render  *render.Service
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(repo board.Repository, catalog schema.Catalog, svc *render.Service, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{repo: repo, catalog: catalog, render: svc, logger: logger.Named("handler")}
}

// Routes registers the dashboard routes on r.
func (h *DashboardHandler) Routes(r chi.Router) {
	r.Get("/v1/filters/{id}/data", h.HandleGetFilterData)
	r.Post("/v1/filters/{id}/data", h.HandlePostFilterData)
	r.Get("/v1/dashboards", h.HandleListDashboards)
	r.Get("/v1/dashboards/{id}", h.HandleGetDashboard)
	r.Get("/v1/dashboards/{id}/data", h.HandleGetDashboardData)
	r.Get("/v1/collections/{name}/fields", h.HandleGetCollectionFields)
}

// fetchBody is the body of POST /v1/filters/{id}/data.
type fetchBody struct {
	LineID    *uuid.UUID     `json:"line_id,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// HandlePostFilterData renders a stored filter.
// POST /v1/filters/{id}/data
//
// The response is always one of the payload shapes, including the error
// payload, with status 200.
func (h *DashboardHandler) HandlePostFilterData(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var body fetchBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.render.Render(r.Context(), render.Request{
		FilterID:  id,
		LineID:    body.LineID,
		Overrides: body.Overrides,
	}))
}

// HandleGetFilterData renders a stored filter. The line comes from
// ?line_id=; any other recognized option in the query string is an override.
// GET /v1/filters/{id}/data
func (h *DashboardHandler) HandleGetFilterData(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := parseQueryUUID(w, r, "line_id")
	if !ok {
		return
	}
	overrides := map[string]any{}
	for k, v := range r.URL.Query() {
		if k == "line_id" || len(v) == 0 {
			continue
		}
		if !options.Overridable(k) {
			h.logger.Debug("ignoring query parameter", zap.String("key", k))
			continue
		}
		overrides[k] = v[0]
	}
	writeJSON(w, http.StatusOK, h.render.Render(r.Context(), render.Request{
		FilterID:  id,
		LineID:    lineID,
		Overrides: overrides,
	}))
}

// HandleListDashboards lists dashboards. Inactive ones are included with
// ?all=true.
// GET /v1/dashboards
func (h *DashboardHandler) HandleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.repo.Dashboards(r.Context(), r.URL.Query().Get("all") != "true")
	if err != nil {
		h.storeError(w, err)
		return
	}
	if dashboards == nil {
		dashboards = []types.Dashboard{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dashboards": dashboards})
}

// HandleGetDashboard returns one dashboard with its lines in sequence order.
// GET /v1/dashboards/{id}
func (h *DashboardHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.repo.Dashboard(r.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// linePayload is one rendered line of a dashboard.
type linePayload struct {
	LineID   uuid.UUID      `json:"line_id"`
	Name     string         `json:"name"`
	Sequence int            `json:"sequence"`
	Width    string         `json:"width,omitempty"`
	Height   string         `json:"height,omitempty"`
	Payload  render.Payload `json:"payload"`
}

// HandleGetDashboardData renders every line of a dashboard in sequence
// order. A failing line yields its own error payload.
// GET /v1/dashboards/{id}/data
func (h *DashboardHandler) HandleGetDashboardData(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.repo.Dashboard(r.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}

	lines := make([]linePayload, 0, len(d.Lines))
	for _, l := range d.Lines {
		lineID := l.ID
		lines = append(lines, linePayload{
			LineID:   l.ID,
			Name:     l.Name,
			Sequence: l.Sequence,
			Width:    l.Width,
			Height:   l.Height,
			Payload:  h.render.Render(r.Context(), render.Request{FilterID: l.FilterID, LineID: &lineID}),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    d.ID,
		"name":  d.Name,
		"lines": lines,
	})
}

// HandleGetCollectionFields returns a collection's field metadata in
// declaration order.
// GET /v1/collections/{name}/fields
func (h *DashboardHandler) HandleGetCollectionFields(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, err := h.catalog.Collection(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	fields := make([]*schema.FieldMeta, 0, len(c.FieldOrder))
	for _, f := range c.FieldOrder {
		fields = append(fields, c.Field(f))
	}
	defaults, err := h.catalog.DefaultColumns(name)
	if err != nil {
		h.logger.Warn("default columns unavailable", zap.String("collection", name), zap.Error(err))
	}
	if defaults == nil {
		defaults = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":            c.Name,
		"label":           c.Label,
		"fields":          fields,
		"default_columns": defaults,
	})
}

// storeError maps repository and catalog errors to HTTP responses.
func (h *DashboardHandler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound), errors.Is(err, schema.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
