package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Directory serves operator-facing vehicle selection: most-recently-used
// ordering and substring search. It caches the vehicle list and re-reads it
// from the repository after any invalidation, so recency bumps are visible
// on the next read.
type Directory struct {
	repo Repository

	mu     sync.Mutex
	cached []Vehicle
	valid  bool
}

// NewDirectory constructs Directory.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// Invalidate drops the cached list. Called by the ledger service after any
// vehicle mutation or ticket commit.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.valid = false
	d.mu.Unlock()
}

func (d *Directory) load(ctx context.Context) ([]Vehicle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.valid {
		vehicles, err := d.repo.ListVehicles(ctx)
		if err != nil {
			return nil, err
		}
		sortByRecency(vehicles)
		d.cached = vehicles
		d.valid = true
	}

	out := make([]Vehicle, len(d.cached))
	copy(out, d.cached)
	return out, nil
}

// ListByRecency returns all vehicles, most recently used first. Vehicles
// never used sort after all used ones; ties resolve by company name then
// unit id, both ascending.
func (d *Directory) ListByRecency(ctx context.Context) ([]Vehicle, error) {
	return d.load(ctx)
}

// Search returns vehicles whose unit id, company name or registry id
// contains term, case-insensitively, in recency order. An empty term
// returns the full recency-ordered list.
func (d *Directory) Search(ctx context.Context, term string) ([]Vehicle, error) {
	vehicles, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return vehicles, nil
	}

	matched := vehicles[:0]
	for _, v := range vehicles {
		if matchesVehicle(v, term) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

func matchesVehicle(v Vehicle, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(v.UnitID), lowerTerm) {
		return true
	}
	if strings.Contains(strings.ToLower(v.CompanyName), lowerTerm) {
		return true
	}
	if v.RegistryID != nil && strings.Contains(strings.ToLower(*v.RegistryID), lowerTerm) {
		return true
	}
	return false
}

func sortByRecency(vehicles []Vehicle) {
	sort.SliceStable(vehicles, func(i, j int) bool {
		a, b := vehicles[i], vehicles[j]
		switch {
		case a.LastUsedAt != nil && b.LastUsedAt == nil:
			return true
		case a.LastUsedAt == nil && b.LastUsedAt != nil:
			return false
		case a.LastUsedAt != nil && b.LastUsedAt != nil && !a.LastUsedAt.Equal(*b.LastUsedAt):
			return a.LastUsedAt.After(*b.LastUsedAt)
		}
		if a.CompanyName != b.CompanyName {
			return a.CompanyName < b.CompanyName
		}
		return a.UnitID < b.UnitID
	})
}
