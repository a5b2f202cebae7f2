// Package catalog keeps an in-memory snapshot of the course catalog for search.
//
// The snapshot is immutable once published. It is rebuilt lazily when older than the
// configured TTL, and concurrent rebuilds collapse into a single store read.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CourseLoader reads the full catalog from the store
type CourseLoader interface {
	// ListAll retrieves every course without curriculum.
	//
	// ctx is the context for the request.
	//
	// Returns the courses and an error if the read fails.
	ListAll(ctx context.Context) ([]models.Course, error)
}

// Snapshot is an immutable view of the catalog
type Snapshot struct {
	Courses  []models.Course
	Facets   models.FilterFacets
	LoadedAt time.Time
}

// Index serves catalog snapshots
type Index struct {
	loader CourseLoader
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
}

// NewIndex creates an index that reloads snapshots older than ttl.
// A ttl of zero reloads on every call.
func NewIndex(loader CourseLoader, ttl time.Duration, logger *zap.Logger) *Index {
	return &Index{
		loader: loader,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns a fresh snapshot, reloading it if it has expired.
// When a reload fails and an older snapshot exists, the stale snapshot is served.
func (i *Index) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := i.current.Load()
	if snap != nil && i.now().Sub(snap.LoadedAt) < i.ttl {
		return snap, nil
	}

	// The reload outlives a cancelled caller so that waiters sharing it still get a result
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := i.group.Do("snapshot", func() (any, error) {
		return i.reload(loadCtx)
	})
	if err != nil {
		if snap != nil {
			i.logger.Warn("serving stale catalog snapshot", zap.Error(err), zap.Time("loaded_at", snap.LoadedAt))
			return snap, nil
		}
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate forces the next Snapshot call to reload
func (i *Index) Invalidate() {
	i.current.Store(nil)
}

func (i *Index) reload(ctx context.Context) (*Snapshot, error) {
	courses, err := i.loader.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	snap := NewSnapshot(courses, i.now())
	i.current.Store(snap)
	i.logger.Debug("catalog snapshot loaded", zap.Int("courses", len(courses)))
	return snap, nil
}

// NewSnapshot builds a snapshot from courses, ordering them by id and computing facets
func NewSnapshot(courses []models.Course, loadedAt time.Time) *Snapshot {
	sorted := make([]models.Course, len(courses))
	copy(sorted, courses)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].ID < sorted[b].ID })

	return &Snapshot{
		Courses:  sorted,
		Facets:   buildFacets(sorted),
		LoadedAt: loadedAt,
	}
}

func buildFacets(courses []models.Course) models.FilterFacets {
	facets := models.FilterFacets{
		Categories: []string{},
		Levels:     []models.Level{},
	}

	categories := make(map[string]struct{})
	levels := make(map[models.Level]struct{})
	for idx, c := range courses {
		if c.Category != "" {
			categories[c.Category] = struct{}{}
		}
		levels[c.Level] = struct{}{}

		if idx == 0 || c.Price < facets.PriceRange.Min {
			facets.PriceRange.Min = c.Price
		}
		if c.Price > facets.PriceRange.Max {
			facets.PriceRange.Max = c.Price
		}
	}

	for category := range categories {
		facets.Categories = append(facets.Categories, category)
	}
	sort.Strings(facets.Categories)

	for _, level := range models.Levels {
		if _, ok := levels[level]; ok {
			facets.Levels = append(facets.Levels, level)
		}
	}

	return facets
}
