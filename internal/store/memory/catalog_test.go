package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

func TestCatalog_CreateGetList(t *testing.T) {
	c := NewCatalog()
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

	late := &model.Screening{Title: "Late Show", Room: "2", StartsAt: base.Add(3 * time.Hour), PriceCents: 1500, SeatRows: 5, SeatCols: 8}
	early := &model.Screening{Title: "Matinee", Room: "1", StartsAt: base, PriceCents: 1200, SeatRows: 5, SeatCols: 8}
	require.NoError(t, c.Create(ctx, late))
	require.NoError(t, c.Create(ctx, early))
	assert.NotZero(t, late.ID)
	assert.NotEqual(t, late.ID, early.ID)

	got, err := c.Get(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "Matinee", got.Title)

	_, err = c.Get(ctx, 99)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	items, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Matinee", items[0].Title, "list is ordered by start time")
	assert.Equal(t, "Late Show", items[1].Title)
}
