// Package board stores dashboard configuration: stored filters, dashboards
// and their display lines.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/dashboard/internal/types"
)

// ErrNotFound is returned when a filter, line or dashboard does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the read interface over stored configuration.
type Repository interface {
	Filter(ctx context.Context, id uuid.UUID) (types.Filter, error)
	Line(ctx context.Context, id uuid.UUID) (types.Line, error)
	Dashboard(ctx context.Context, id uuid.UUID) (types.Dashboard, error)
	// Dashboards lists dashboards by name. Lines are not populated.
	Dashboards(ctx context.Context, activeOnly bool) ([]types.Dashboard, error)
}

// MemoryRepository implements Repository in memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	filters    map[uuid.UUID]types.Filter
	dashboards map[uuid.UUID]types.Dashboard
	lines      map[uuid.UUID]types.Line
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		filters:    make(map[uuid.UUID]types.Filter),
		dashboards: make(map[uuid.UUID]types.Dashboard),
		lines:      make(map[uuid.UUID]types.Line),
	}
}

// PutFilter adds or replaces a filter. A nil id is assigned a new one.
func (r *MemoryRepository) PutFilter(f types.Filter) types.Filter {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.ID] = f
	return f
}

// PutDashboard adds or replaces a dashboard and its lines. Nil ids are
// assigned, and every line is linked to the dashboard.
func (r *MemoryRepository) PutDashboard(d types.Dashboard) types.Dashboard {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.dashboards[d.ID]; ok {
		for _, l := range old.Lines {
			delete(r.lines, l.ID)
		}
	}
	lines := make([]types.Line, len(d.Lines))
	for i, l := range d.Lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.DashboardID = d.ID
		lines[i] = l
		r.lines[l.ID] = l
	}
	sortLines(lines)
	d.Lines = lines
	r.dashboards[d.ID] = d
	return d
}

func (r *MemoryRepository) Filter(_ context.Context, id uuid.UUID) (types.Filter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[id]
	if !ok {
		return types.Filter{}, fmt.Errorf("filter %s: %w", id, ErrNotFound)
	}
	return f, nil
}

func (r *MemoryRepository) Line(_ context.Context, id uuid.UUID) (types.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lines[id]
	if !ok {
		return types.Line{}, fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (r *MemoryRepository) Dashboard(_ context.Context, id uuid.UUID) (types.Dashboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dashboards[id]
	if !ok {
		return types.Dashboard{}, fmt.Errorf("dashboard %s: %w", id, ErrNotFound)
	}
	d.Lines = append([]types.Line(nil), d.Lines...)
	return d, nil
}

func (r *MemoryRepository) Dashboards(_ context.Context, activeOnly bool) ([]types.Dashboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Dashboard, 0, len(r.dashboards))
	for _, d := range r.dashboards {
		if activeOnly && !d.Active {
			continue
		}
		d.Lines = nil
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// sortLines orders lines by sequence, then name.
func sortLines(lines []types.Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Sequence != lines[j].Sequence {
			return lines[i].Sequence < lines[j].Sequence
		}
		return lines[i].Name < lines[j].Name
	})
}
