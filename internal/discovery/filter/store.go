package filter

import (
	"strings"
	"sync"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.uber.org/zap"
)

// Change is delivered to subscribers after every effective write.
type Change struct {
	Previous   domain.FilterState
	Next       domain.FilterState
	Generation domain.Generation
	// QueryChanged is true when Generation advanced with this write.
	QueryChanged    bool
	ViewModeChanged bool
}

type Listener func(Change)

// Store owns the current FilterState. Writes are validated and normalized
// before they become visible; a write never fails.
type Store struct {
	mu        sync.Mutex
	state     domain.FilterState
	gen       domain.Generation
	listeners map[int]Listener
	nextID    int
	logger    *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:     domain.DefaultFilterState(),
		gen:       1,
		listeners: make(map[int]Listener),
		logger:    logger.Named("filter_store"),
	}
}

// Current returns an immutable copy of the state.
func (s *Store) Current() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Snapshot returns the state together with the generation it belongs to.
func (s *Store) Snapshot() (domain.FilterState, domain.Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.gen
}

func (s *Store) Generation() domain.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Set merges the patch into the current state and returns the resulting
// generation. The generation only advances on query-relevant changes.
func (s *Store) Set(p domain.FilterPatch) domain.Generation {
	s.mu.Lock()
	prev := s.state
	next := Sanitize(prev, p.Apply(prev), s.logger)
	return s.commitLocked(prev, next)
}

// Reset restores the default filters.
func (s *Store) Reset() domain.Generation {
	s.mu.Lock()
	prev := s.state
	next := domain.DefaultFilterState()
	return s.commitLocked(prev, next)
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// commitLocked must be called with s.mu held; it releases the lock before
// notifying listeners.
func (s *Store) commitLocked(prev, next domain.FilterState) domain.Generation {
	queryChanged := !prev.QueryEqual(next)
	viewChanged := prev.ViewMode != next.ViewMode
	if !queryChanged && !viewChanged {
		gen := s.gen
		s.mu.Unlock()
		return gen
	}

	bump := queryChanged || (viewChanged && !next.Category.Geolocatable())
	if bump {
		s.gen++
	}
	s.state = next
	change := Change{
		Previous:        prev.Clone(),
		Next:            next.Clone(),
		Generation:      s.gen,
		QueryChanged:    bump,
		ViewModeChanged: viewChanged,
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.logger.Debug("filter state changed",
		zap.Uint64("generation", uint64(change.Generation)),
		zap.Bool("query_changed", change.QueryChanged),
		zap.Bool("view_mode_changed", change.ViewModeChanged),
	)
	for _, l := range listeners {
		l(change)
	}
	return change.Generation
}

// Sanitize normalizes a candidate state. Invalid enum values fall back to the
// previous state, an inverted price range is swapped and facets that the
// category does not declare (or whose value does not fit the declaration) are
// dropped.
func Sanitize(prev, next domain.FilterState, logger *zap.Logger) domain.FilterState {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := next.Clone()

	if !out.Category.IsFilterable() {
		logger.Warn("ignoring unknown category", zap.String("category", string(out.Category)))
		out.Category = prev.Category
	}
	if !out.Sort.IsValid() {
		logger.Warn("ignoring unknown sort", zap.String("sort", string(out.Sort)))
		out.Sort = prev.Sort
	}
	if !out.ViewMode.IsValid() {
		logger.Warn("ignoring unknown view mode", zap.String("view_mode", string(out.ViewMode)))
		out.ViewMode = prev.ViewMode
	}
	out.SearchText = strings.TrimSpace(out.SearchText)
	out.PriceRange = out.PriceRange.Normalize()

	schema := domain.SchemaFor(out.Category)
	for name, v := range out.Facets {
		spec, ok := schema.Lookup(name)
		if !ok {
			logger.Debug("pruning facet not declared for category",
				zap.String("facet", name), zap.String("category", string(out.Category)))
			delete(out.Facets, name)
			continue
		}
		if err := spec.Accepts(v); err != nil {
			logger.Warn("dropping invalid facet value", zap.String("facet", name), zap.Error(err))
			delete(out.Facets, name)
			continue
		}
		if v.IsUnset() {
			delete(out.Facets, name)
		}
	}
	return out
}
