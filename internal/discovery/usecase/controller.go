package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/filter"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/pager"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/spatial"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 10 * time.Second

var ErrFetchTimeout = errors.New("listing fetch timed out")

// State is the lifecycle of the visible result list.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StatePopulated State = "populated"
	StateEmpty     State = "empty"
	StateErrored   State = "errored"
)

// Fetch outcomes reported to Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeStale   = "stale"
)

// View is the projection handed to presentation code.
type View struct {
	Items       []domain.Listing
	State       State
	HasMore     bool
	LoadingMore bool
	Err         error
	Generation  domain.Generation
	Filter      domain.FilterState
}

// Session yields the authenticated user of the discovery session, or "".
type Session interface {
	UserID() string
}

type EventPublisher interface {
	PublishSearchExecuted(ctx context.Context, event domain.SearchExecuted) error
}

type Metrics interface {
	FetchCompleted(outcome string, elapsed time.Duration)
	GenerationReset()
}

type Dependencies struct {
	Store      *filter.Store
	Repository domain.ListingRepository
	Planner    *query.Planner
	Renderer   *spatial.Renderer
	Session    Session
	Publisher  EventPublisher
	Metrics    Metrics
}

type Config struct {
	FetchTimeout time.Duration
}

// Controller drives one discovery session: it reacts to filter changes,
// fetches pages and exposes the resulting View.
type Controller struct {
	store     *filter.Store
	repo      domain.ListingRepository
	planner   *query.Planner
	renderer  *spatial.Renderer
	session   Session
	publisher EventPublisher
	metrics   Metrics
	logger    *zap.Logger

	fetchTimeout time.Duration
	sessionID    string
	pager        *pager.Pager

	mu          sync.Mutex
	state       State
	err         error
	loadingMore bool
	listeners   map[int]func(View)
	nextID      int

	wg          sync.WaitGroup
	unsubscribe func()
}

func NewController(deps Dependencies, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if deps.Planner == nil {
		deps.Planner = query.NewPlanner(nil, nil, logger)
	}
	if deps.Renderer == nil {
		deps.Renderer = spatial.NewRenderer(nil, spatial.DefaultOptions(), logger)
	}
	sessionID := uuid.NewString()
	c := &Controller{
		store:        deps.Store,
		repo:         deps.Repository,
		planner:      deps.Planner,
		renderer:     deps.Renderer,
		session:      deps.Session,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		logger:       logger.Named("discovery_controller").With(zap.String("session_id", sessionID)),
		fetchTimeout: cfg.FetchTimeout,
		sessionID:    sessionID,
		pager:        pager.New(domain.PageSize),
		state:        StateIdle,
		listeners:    make(map[int]func(View)),
	}
	c.unsubscribe = c.store.Subscribe(c.onFilterChange)
	return c
}

// Start loads the first page for the current filters. It is a no-op once the
// controller has left Idle.
func (c *Controller) Start() {
	current, gen := c.store.Snapshot()
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.resetLocked(gen)
	c.mu.Unlock()

	c.renderer.SetActive(spatial.ShouldRender(current))
	c.renderer.Reset(gen)
	c.notify()
	c.launchNext()
}

// SetFilter applies a partial filter update and returns the resulting generation.
func (c *Controller) SetFilter(p domain.FilterPatch) domain.Generation {
	return c.store.Set(p)
}

func (c *Controller) Search(text string) domain.Generation {
	return c.store.Set(domain.FilterPatch{SearchText: &text})
}

// ClearFilters restores the default filters.
func (c *Controller) ClearFilters() domain.Generation {
	return c.store.Reset()
}

func (c *Controller) SetViewMode(mode domain.ViewMode) domain.Generation {
	return c.store.Set(domain.FilterPatch{ViewMode: &mode})
}

// LoadMore requests the next page. It reports false when the request was
// ignored: not populated, nothing more to load or a fetch already running.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.state != StatePopulated {
		c.mu.Unlock()
		return false
	}
	ticket, ok := c.pager.Begin()
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.state = StateLoading
	c.loadingMore = true
	c.mu.Unlock()

	c.notify()
	c.launch(ticket)
	return true
}

// Retry re-issues the failed request of the current generation at the same offset.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.state != StateErrored {
		c.mu.Unlock()
		return false
	}
	ticket, ok := c.pager.Begin()
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.state = StateLoading
	c.loadingMore = ticket.Page.Offset > 0
	c.err = nil
	c.mu.Unlock()

	c.notify()
	c.launch(ticket)
	return true
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Renderer exposes the map state of the session.
func (c *Controller) Renderer() *spatial.Renderer { return c.renderer }

// Subscribe registers fn for every view change and returns its remover.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Wait blocks until every running fetch has finished.
func (c *Controller) Wait() { c.wg.Wait() }

// Close detaches the controller from its store and waits for running fetches.
func (c *Controller) Close() {
	c.unsubscribe()
	c.wg.Wait()
}

func (c *Controller) onFilterChange(change filter.Change) {
	if change.ViewModeChanged {
		c.renderer.SetActive(spatial.ShouldRender(change.Next))
	}
	if !change.QueryChanged {
		if c.renderer.Active() {
			snap := c.pager.Snapshot()
			c.renderer.SyncGeneration(snap.Generation, snap.Items)
		}
		c.notify()
		return
	}

	c.mu.Lock()
	if change.Generation <= c.pager.Generation() {
		c.mu.Unlock()
		return
	}
	c.resetLocked(change.Generation)
	c.mu.Unlock()

	c.logger.Debug("generation reset", zap.Uint64("generation", uint64(change.Generation)))
	if c.metrics != nil {
		c.metrics.GenerationReset()
	}
	c.renderer.Reset(change.Generation)
	c.notify()
	c.launchNext()
}

func (c *Controller) resetLocked(gen domain.Generation) {
	c.pager.Reset(gen)
	c.state = StateLoading
	c.err = nil
	c.loadingMore = false
}

func (c *Controller) launchNext() {
	ticket, ok := c.pager.Begin()
	if !ok {
		return
	}
	c.launch(ticket)
}

func (c *Controller) launch(ticket pager.Ticket) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.fetch(ticket)
	}()
}

func (c *Controller) fetch(ticket pager.Ticket) {
	started := time.Now()
	state, gen := c.store.Snapshot()
	if gen != ticket.Generation {
		c.pager.Fail(ticket)
		c.observe(OutcomeStale, started)
		return
	}

	ctx, span := otel.Tracer("discovery-controller").Start(context.Background(), "Controller.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("generation", int64(ticket.Generation)),
		attribute.Int("offset", ticket.Page.Offset),
		attribute.String("category", string(state.Category)),
	)

	userID := ""
	if c.session != nil {
		userID = c.session.UserID()
	}
	// The planner bounds the recommendation lookup itself; the fetch deadline
	// covers the listing query only.
	desc := c.planner.Plan(ctx, state, ticket.Generation, ticket.Page, userID)

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var items []domain.Listing
	if !desc.Empty {
		var err error
		items, err = c.repo.Query(ctx, desc)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s: %v", ErrFetchTimeout, c.fetchTimeout, err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.failFetch(ticket, err, started)
			return
		}
	}

	returned := len(items)
	admitted, rejected := query.Admit(items)
	for _, r := range rejected {
		c.logger.Warn("rejecting malformed listing", zap.String("listing_id", r.ListingID), zap.Error(r.Err))
	}

	c.mu.Lock()
	appended, ok := c.pager.CompleteN(ticket, admitted, returned)
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("discarding stale page", zap.Uint64("generation", uint64(ticket.Generation)))
		c.observe(OutcomeStale, started)
		return
	}
	snap := c.pager.Snapshot()
	if len(snap.Items) == 0 {
		c.state = StateEmpty
	} else {
		c.state = StatePopulated
	}
	c.err = nil
	c.loadingMore = false
	c.mu.Unlock()

	c.renderer.SyncGeneration(ticket.Generation, snap.Items)
	c.logger.Debug("page loaded",
		zap.Uint64("generation", uint64(ticket.Generation)),
		zap.Int("offset", ticket.Page.Offset),
		zap.Int("returned", returned),
		zap.Int("appended", appended),
		zap.Bool("has_more", snap.HasMore),
	)
	if len(snap.Items) == 0 {
		c.observe(OutcomeEmpty, started)
	} else {
		c.observe(OutcomeSuccess, started)
	}
	if ticket.Page.Offset == 0 {
		c.publishSearch(ctx, state, ticket.Generation, desc, userID, snap)
	}
	c.notify()
}

func (c *Controller) failFetch(ticket pager.Ticket, err error, started time.Time) {
	c.mu.Lock()
	if !c.pager.Fail(ticket) {
		c.mu.Unlock()
		c.observe(OutcomeStale, started)
		return
	}
	c.state = StateErrored
	c.err = err
	c.loadingMore = false
	c.mu.Unlock()

	// A failed first page clears the previous generation's markers.
	if ticket.Page.Offset == 0 {
		c.renderer.SyncGeneration(ticket.Generation, nil)
	}

	c.logger.Warn("listing fetch failed",
		zap.Uint64("generation", uint64(ticket.Generation)),
		zap.Int("offset", ticket.Page.Offset),
		zap.Error(err),
	)
	if errors.Is(err, ErrFetchTimeout) {
		c.observe(OutcomeTimeout, started)
	} else {
		c.observe(OutcomeError, started)
	}
	c.notify()
}

func (c *Controller) publishSearch(ctx context.Context, state domain.FilterState, gen domain.Generation, desc domain.QueryDescriptor, userID string, snap pager.Snapshot) {
	if c.publisher == nil {
		return
	}
	event := domain.SearchExecuted{
		EventID:      uuid.NewString(),
		SessionID:    c.sessionID,
		UserID:       userID,
		Generation:   uint64(gen),
		Category:     state.Category,
		SearchText:   state.SearchText,
		Sort:         state.Sort,
		SortFallback: desc.SortFallback,
		ResultCount:  len(snap.Items),
		HasMore:      snap.HasMore,
		OccurredAt:   time.Now().UTC(),
	}
	if err := c.publisher.PublishSearchExecuted(ctx, event); err != nil {
		c.logger.Warn("failed to publish search event", zap.Error(err))
	}
}

func (c *Controller) observe(outcome string, started time.Time) {
	if c.metrics != nil {
		c.metrics.FetchCompleted(outcome, time.Since(started))
	}
}

func (c *Controller) viewLocked() View {
	snap := c.pager.Snapshot()
	return View{
		Items:       snap.Items,
		State:       c.state,
		HasMore:     snap.HasMore,
		LoadingMore: c.loadingMore,
		Err:         c.err,
		Generation:  snap.Generation,
		Filter:      c.store.Current(),
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	view := c.viewLocked()
	listeners := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(view)
	}
}
