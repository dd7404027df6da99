package spatial

import (
	"sync"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.uber.org/zap"
)

// Marker is the map representation of one listing.
type Marker struct {
	ListingID string          `json:"listing_id"`
	Position  domain.LatLng   `json:"position"`
	Price     float64         `json:"price"`
	Title     string          `json:"title"`
	Category  domain.Category `json:"category"`
}

// Label is derived on every render so it always reflects the current price.
func (m Marker) Label() string { return FormatPriceLabel(m.Price) }

// MarkerHandle is an opaque reference owned by a Surface.
type MarkerHandle any

// Surface is the map widget the renderer drives.
type Surface interface {
	AddMarker(m Marker) MarkerHandle
	UpdateMarker(h MarkerHandle, m Marker)
	RemoveMarker(h MarkerHandle)
	SetViewport(v Viewport)
}

type Viewport struct {
	Center domain.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
	Bounds Bounds        `json:"bounds"`
}

type Options struct {
	MaxZoom       int
	WidthPx       int
	HeightPx      int
	ClusterCellPx int
}

func DefaultOptions() Options {
	return Options{MaxZoom: 15, WidthPx: 1024, HeightPx: 768, ClusterCellPx: 60}
}

// Diff lists the ids touched by one Sync.
type Diff struct {
	Added   []string
	Removed []string
	Kept    []string
	Fitted  bool
}

type entry struct {
	marker Marker
	handle MarkerHandle
}

// ShouldRender reports whether a filter state is shown on the map.
func ShouldRender(s domain.FilterState) bool {
	return s.ViewMode == domain.ViewMap && s.Category.Geolocatable()
}

// Renderer reconciles the current result list with the markers of a Surface.
// Markers are keyed by listing id so unchanged listings keep their handle.
type Renderer struct {
	mu         sync.Mutex
	opts       Options
	surface    Surface
	logger     *zap.Logger
	active     bool
	markers    map[string]*entry
	order      []string
	selected   string
	viewport   Viewport
	fitPending bool
	generation domain.Generation
}

func NewRenderer(surface Surface, opts Options, logger *zap.Logger) *Renderer {
	if surface == nil {
		surface = nopSurface{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = def.MaxZoom
	}
	if opts.WidthPx <= 0 {
		opts.WidthPx = def.WidthPx
	}
	if opts.HeightPx <= 0 {
		opts.HeightPx = def.HeightPx
	}
	if opts.ClusterCellPx <= 0 {
		opts.ClusterCellPx = def.ClusterCellPx
	}
	return &Renderer{
		opts:    opts,
		surface: surface,
		logger:  logger.Named("spatial_renderer"),
		markers: make(map[string]*entry),
	}
}

// SetActive turns rendering on or off. Deactivation removes every marker.
func (r *Renderer) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == active {
		return
	}
	r.active = active
	if !active {
		for _, id := range r.order {
			r.surface.RemoveMarker(r.markers[id].handle)
		}
		r.markers = make(map[string]*entry)
		r.order = nil
		r.selected = ""
	}
	r.fitPending = true
}

func (r *Renderer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Reset marks the start of result generation gen. The viewport is refitted
// on the next non-empty sync and syncs of older generations are ignored.
func (r *Renderer) Reset(gen domain.Generation) {
	r.mu.Lock()
	if gen > r.generation {
		r.generation = gen
	}
	r.fitPending = true
	r.mu.Unlock()
}

// Sync reconciles markers with listings of the current generation.
func (r *Renderer) Sync(listings []domain.Listing) Diff {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncLocked(listings)
}

// SyncGeneration is Sync for the listings of generation gen. It reports false
// and leaves the markers untouched when gen is older than the last Reset.
func (r *Renderer) SyncGeneration(gen domain.Generation, listings []domain.Listing) (Diff, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.generation {
		r.logger.Debug("ignoring markers of a stale generation",
			zap.Uint64("generation", uint64(gen)), zap.Uint64("current", uint64(r.generation)))
		return Diff{}, false
	}
	if gen > r.generation {
		r.generation = gen
		r.fitPending = true
	}
	return r.syncLocked(listings), true
}

// syncLocked does the reconciliation. Listings without coordinates are not
// rendered. It is a no-op while inactive.
func (r *Renderer) syncLocked(listings []domain.Listing) Diff {
	var diff Diff
	if !r.active {
		return diff
	}

	next := make(map[string]Marker, len(listings))
	order := make([]string, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		pos, ok := l.Coordinates()
		if !ok {
			continue
		}
		if _, dup := next[l.ID]; dup {
			continue
		}
		next[l.ID] = Marker{ListingID: l.ID, Position: pos, Price: l.Price, Title: l.Title, Category: l.Category}
		order = append(order, l.ID)
	}

	wasEmpty := len(r.markers) == 0
	for _, id := range r.order {
		if _, keep := next[id]; !keep {
			r.surface.RemoveMarker(r.markers[id].handle)
			delete(r.markers, id)
			diff.Removed = append(diff.Removed, id)
		}
	}
	for _, id := range order {
		m := next[id]
		if e, ok := r.markers[id]; ok {
			if e.marker != m {
				e.marker = m
				r.surface.UpdateMarker(e.handle, m)
			}
			diff.Kept = append(diff.Kept, id)
			continue
		}
		r.markers[id] = &entry{marker: m, handle: r.surface.AddMarker(m)}
		diff.Added = append(diff.Added, id)
	}
	r.order = order

	if r.selected != "" {
		if _, ok := r.markers[r.selected]; !ok {
			r.logger.Debug("selected listing left the result set", zap.String("listing_id", r.selected))
			r.selected = ""
		}
	}

	if len(r.markers) > 0 && (wasEmpty || r.fitPending) {
		r.fitLocked()
		r.fitPending = false
		diff.Fitted = true
	}
	return diff
}

func (r *Renderer) fitLocked() {
	points := make([]domain.LatLng, 0, len(r.order))
	for _, id := range r.order {
		points = append(points, r.markers[id].marker.Position)
	}
	b, ok := BoundsOf(points)
	if !ok {
		return
	}
	r.viewport = Viewport{
		Center: b.Center(),
		Zoom:   ZoomForBounds(b, r.opts.WidthPx, r.opts.HeightPx, r.opts.MaxZoom),
		Bounds: b,
	}
	r.surface.SetViewport(r.viewport)
}

// Markers returns the rendered markers in result order.
func (r *Renderer) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.markers[id].marker)
	}
	return out
}

// Select marks a rendered listing as selected; an empty id clears the
// selection. Unknown ids are refused.
func (r *Renderer) Select(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		r.selected = ""
		return true
	}
	if _, ok := r.markers[id]; !ok {
		return false
	}
	r.selected = id
	return true
}

// SelectedListingID returns the selected id or "" when nothing is selected.
func (r *Renderer) SelectedListingID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

func (r *Renderer) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

type nopSurface struct{}

func (nopSurface) AddMarker(Marker) MarkerHandle     { return nil }
func (nopSurface) UpdateMarker(MarkerHandle, Marker) {}
func (nopSurface) RemoveMarker(MarkerHandle)         {}
func (nopSurface) SetViewport(Viewport)              {}
