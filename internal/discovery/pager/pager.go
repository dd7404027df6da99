package pager

import (
	"sync"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

// Ticket identifies one in-flight page request.
type Ticket struct {
	Generation domain.Generation
	Page       domain.Page
}

// Snapshot is a read-only copy of the pager state.
type Snapshot struct {
	Items      []domain.Listing
	Offset     int
	HasMore    bool
	Generation domain.Generation
	InFlight   bool
}

// Pager accumulates the pages of one generation. At most one request is in
// flight per generation and results of older generations are ignored.
type Pager struct {
	mu       sync.Mutex
	limit    int
	items    []domain.Listing
	seen     map[string]struct{}
	offset   int
	hasMore  bool
	gen      domain.Generation
	inFlight bool
}

func New(limit int) *Pager {
	if limit <= 0 {
		limit = domain.PageSize
	}
	return &Pager{
		limit:   limit,
		seen:    make(map[string]struct{}),
		hasMore: true,
	}
}

// Reset drops every accumulated item and starts generation gen.
func (p *Pager) Reset(gen domain.Generation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.seen = make(map[string]struct{})
	p.offset = 0
	p.hasMore = true
	p.gen = gen
	p.inFlight = false
}

// Begin reserves the next page. It returns false when there is nothing more
// to load or a request is already in flight.
func (p *Pager) Begin() (Ticket, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasMore || p.inFlight {
		return Ticket{}, false
	}
	p.inFlight = true
	return Ticket{
		Generation: p.gen,
		Page:       domain.Page{Offset: p.offset, Limit: p.limit},
	}, true
}

// Complete appends the items returned for t. Items whose id is already
// present are skipped. It reports how many items were appended and whether
// the ticket still belonged to the current generation.
func (p *Pager) Complete(t Ticket, items []domain.Listing) (int, bool) {
	return p.CompleteN(t, items, len(items))
}

// CompleteN is Complete for callers that filtered the backend response;
// returned is the number of items the backend sent and decides hasMore.
func (p *Pager) CompleteN(t Ticket, items []domain.Listing, returned int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Generation != p.gen || !p.inFlight || t.Page.Offset != p.offset {
		return 0, false
	}
	appended := 0
	for _, it := range items {
		if _, dup := p.seen[it.ID]; dup {
			continue
		}
		p.seen[it.ID] = struct{}{}
		p.items = append(p.items, it)
		appended++
	}
	p.offset += t.Page.Limit
	if returned < t.Page.Limit {
		p.hasMore = false
	}
	p.inFlight = false
	return appended, true
}

// Fail releases the in-flight slot of t without advancing, so the same page
// can be requested again.
func (p *Pager) Fail(t Ticket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Generation != p.gen || !p.inFlight {
		return false
	}
	p.inFlight = false
	return true
}

func (p *Pager) Generation() domain.Generation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]domain.Listing, len(p.items))
	copy(items, p.items)
	return Snapshot{
		Items:      items,
		Offset:     p.offset,
		HasMore:    p.hasMore,
		Generation: p.gen,
		InFlight:   p.inFlight,
	}
}
