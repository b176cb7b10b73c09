// Package render turns a stored filter into a list, pivot or graph payload.
//
// A render resolves the effective options of the filter (see package
// options), classifies the view type and runs the matching pipeline against
// the record store. Store failures inside a pipeline degrade to that
// pipeline's fallback; only a missing filter or an unexpected fault yields
// an ErrorPayload.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/labels"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

// DefaultListLimit caps list renders without a configured limit.
const DefaultListLimit = 50

// MsgFilterNotFound is the error text for an unknown filter id.
const MsgFilterNotFound = "filter not found"

// Config holds render settings.
type Config struct {
	ListLimit int // 0 = DefaultListLimit
}

// Service renders stored filters.
type Service struct {
	repo      board.Repository
	catalog   schema.Catalog
	store     store.Store
	resolver  *options.Resolver
	logger    *zap.Logger
	listLimit int
}

// NewService creates a render service.
func NewService(repo board.Repository, catalog schema.Catalog, st store.Store, resolver *options.Resolver, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		store:     st,
		resolver:  resolver,
		logger:    logger.Named("render"),
		listLimit: cfg.ListLimit,
	}
}

// Request identifies what to render.
type Request struct {
	FilterID  uuid.UUID      `json:"filter_id"`
	LineID    *uuid.UUID     `json:"line_id,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// job carries the resolved inputs of one pipeline run.
type job struct {
	filter types.Filter
	coll   *schema.Collection
	line   *types.Line
	dom    domain.Node
	opts   options.Effective
	log    *zap.Logger
}

// Render produces the payload for req. It never panics and never returns a
// nil payload.
func (s *Service) Render(ctx context.Context, req Request) (p Payload) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("render panicked",
				zap.Stringer("filter_id", req.FilterID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			p = ErrorPayload{Error: fmt.Sprint(r)}
		}
	}()

	f, err := s.repo.Filter(ctx, req.FilterID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return ErrorPayload{Error: MsgFilterNotFound}
		}
		s.logger.Error("loading filter", zap.Stringer("filter_id", req.FilterID), zap.Error(err))
		return ErrorPayload{Error: err.Error()}
	}

	var line *types.Line
	if req.LineID != nil {
		l, err := s.repo.Line(ctx, *req.LineID)
		if err != nil {
			s.logger.Debug("ignoring unknown line", zap.Stringer("line_id", *req.LineID), zap.Error(err))
		} else {
			line = &l
		}
	}

	coll, err := s.catalog.Collection(f.Collection)
	if err != nil {
		s.logger.Error("filter targets unknown collection",
			zap.Stringer("filter_id", f.ID), zap.String("collection", f.Collection))
		return ErrorPayload{Error: err.Error()}
	}

	res := s.resolver.Resolve(f, line, req.Overrides)
	vt := options.Classify(res.Effective)
	j := &job{
		filter: f,
		coll:   coll,
		line:   line,
		dom:    res.Domain,
		opts:   res.Effective,
		log: s.logger.With(
			zap.Stringer("filter_id", f.ID),
			zap.String("collection", coll.Name),
			zap.String("view", string(vt))),
	}

	switch vt {
	case types.ViewGraph:
		return s.graph(ctx, j)
	case types.ViewPivot:
		return s.pivot(ctx, j)
	default:
		return s.list(ctx, j)
	}
}

// soft runs a store call and yields the zero value when it fails.
func soft[T any](j *job, op string, fn func() (T, error)) T {
	v, err := fn()
	if err != nil {
		j.log.Warn("store call failed, using fallback", zap.String("op", op), zap.Error(err))
		var zero T
		return zero
	}
	return v
}

// enumFor returns the key/label map of a selection field, or nil.
func enumFor(c *schema.Collection, field string) map[string]string {
	if f := c.Field(field); f != nil {
		return schema.EnumMap(f)
	}
	return nil
}

// fieldLabel returns a field's display label, or fallback when the field is
// unknown.
func fieldLabel(c *schema.Collection, field, fallback string) string {
	if f := c.Field(field); f != nil {
		return f.DisplayLabel()
	}
	if fallback != "" {
		return fallback
	}
	return field
}

func policy(e options.Effective) labels.Policy {
	return labels.Policy{
		ByTotal: e.PivotSortBy == options.SortByTotal,
		Desc:    e.PivotSortOrder == options.OrderDesc,
		Limit:   e.RowLimit,
	}
}
