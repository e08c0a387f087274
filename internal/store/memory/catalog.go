package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/model"
)

// Catalog is the in-memory screening catalog.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[uint64]*model.Screening
	nextID uint64
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[uint64]*model.Screening), nextID: 1}
}

// Create inserts the screening and assigns its id.
func (c *Catalog) Create(_ context.Context, s *model.Screening) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.ID = c.nextID
	c.nextID++
	cp := *s
	c.byID[s.ID] = &cp
	return nil
}

// Get returns a copy of the screening, or ErrNotFound.
func (c *Catalog) Get(_ context.Context, id uint64) (*model.Screening, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// List returns all screenings ordered by start time.
func (c *Catalog) List(_ context.Context) ([]model.Screening, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Screening, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}
