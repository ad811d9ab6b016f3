package hazard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	hazards map[string]*Hazard
}

// NewInMemoryRepository creates a new in-memory hazard repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		hazards: make(map[string]*Hazard),
	}
}

// Create persists a new hazard record.
func (r *InMemoryRepository) Create(_ context.Context, hazard *Hazard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := *hazard
	r.hazards[hazard.ID] = &h
	return nil
}

// Get retrieves a hazard by id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Hazard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hazard, ok := r.hazards[id]
	if !ok {
		return nil, ErrHazardNotFound
	}

	h := *hazard
	return &h, nil
}

// Nearby returns all hazards within radiusM meters of the given point,
// newest first.
func (r *InMemoryRepository) Nearby(_ context.Context, lat, lon, radiusM float64) ([]*Hazard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Hazard
	for _, hazard := range r.hazards {
		if DistanceMeters(lat, lon, hazard.Lat, hazard.Lon) <= radiusM {
			h := *hazard
			matches = append(matches, &h)
		}
	}

	sortNewestFirst(matches)
	return matches, nil
}

// List returns hazards matching the filter, newest first.
func (r *InMemoryRepository) List(_ context.Context, filter Filter, opts ListOptions) ([]*Hazard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Hazard
	for _, hazard := range r.hazards {
		if !matchesFilter(hazard, filter) {
			continue
		}
		h := *hazard
		matches = append(matches, &h)
	}

	sortNewestFirst(matches)

	if opts.Skip >= len(matches) {
		return nil, nil
	}
	matches = matches[opts.Skip:]
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	return matches, nil
}

// Delete removes a hazard.
func (r *InMemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hazards[id]; !ok {
		return false, nil
	}

	delete(r.hazards, id)
	return true, nil
}

// Count returns the total number of hazards.
func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hazards), nil
}

// CountByType returns all-time hazard counts keyed by hazard type.
func (r *InMemoryRepository) CountByType(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, hazard := range r.hazards {
		counts[hazard.HazardType]++
	}

	return counts, nil
}

// CountByDay returns per-UTC-day hazard counts since the given time,
// ascending by date.
func (r *InMemoryRepository) CountByDay(_ context.Context, since time.Time) ([]DayCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, hazard := range r.hazards {
		if hazard.Ts.Before(since) {
			continue
		}
		counts[hazard.Ts.UTC().Format("2006-01-02")]++
	}

	days := make([]DayCount, 0, len(counts))
	for date, count := range counts {
		days = append(days, DayCount{Date: date, Count: count})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return days, nil
}

// Heatmap bins hazards by coordinates rounded to three decimal degrees.
func (r *InMemoryRepository) Heatmap(_ context.Context) ([]Cell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bins := make(map[string]*Cell)
	for _, hazard := range r.hazards {
		lat := roundCoord(hazard.Lat)
		lon := roundCoord(hazard.Lon)
		key := fmt.Sprintf("%.3f:%.3f", lat, lon)
		if cell, ok := bins[key]; ok {
			cell.Count++
			continue
		}
		bins[key] = &Cell{Lat: lat, Lon: lon, Count: 1}
	}

	cells := make([]Cell, 0, len(bins))
	for _, cell := range bins {
		cells = append(cells, *cell)
	}

	return cells, nil
}

func matchesFilter(h *Hazard, filter Filter) bool {
	if filter.HazardType != "" && h.HazardType != filter.HazardType {
		return false
	}
	if filter.SeverityMin != nil && h.Severity < *filter.SeverityMin {
		return false
	}
	if filter.SeverityMax != nil && h.Severity > *filter.SeverityMax {
		return false
	}
	if filter.Start != nil && h.Ts.Before(*filter.Start) {
		return false
	}
	if filter.End != nil && h.Ts.After(*filter.End) {
		return false
	}
	return true
}

func sortNewestFirst(hazards []*Hazard) {
	sort.Slice(hazards, func(i, j int) bool {
		return hazards[i].Ts.After(hazards[j].Ts)
	})
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
