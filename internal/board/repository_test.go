package board

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashboard/internal/types"
)

func TestMemoryRepository_Filters(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	f := r.PutFilter(types.Filter{Name: "Posted invoices", Collection: "account.move", Domain: "[]"})
	require.NotEqual(t, uuid.Nil, f.ID)

	got, err := r.Filter(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = r.Filter(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryRepository_Dashboards(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	d := r.PutDashboard(types.Dashboard{
		Name:   "Sales",
		Active: true,
		Lines: []types.Line{
			{Name: "b", Sequence: 20},
			{Name: "a", Sequence: 10},
			{Name: "c", Sequence: 10},
		},
	})
	r.PutDashboard(types.Dashboard{Name: "Archive", Active: false})

	got, err := r.Dashboard(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{got.Lines[0].Name, got.Lines[1].Name, got.Lines[2].Name})
	assert.Equal(t, d.ID, got.Lines[0].DashboardID)

	line, err := r.Line(ctx, got.Lines[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "b", line.Name)

	all, err := r.Dashboards(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Archive", all[0].Name)
	assert.Nil(t, all[1].Lines)

	active, err := r.Dashboards(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Sales", active[0].Name)

	_, err = r.Line(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = r.Dashboard(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryRepository_ReplaceDashboardDropsOldLines(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	d := r.PutDashboard(types.Dashboard{Name: "Ops", Lines: []types.Line{{Name: "old"}}})
	oldLine := d.Lines[0].ID

	d.Lines = []types.Line{{Name: "new"}}
	r.PutDashboard(d)

	_, err := r.Line(ctx, oldLine)
	assert.True(t, errors.Is(err, ErrNotFound))
}
