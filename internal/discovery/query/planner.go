package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fallback reasons reported when a recommended query is compiled as newest.
const (
	FallbackNoUser      = "no_user"
	FallbackUnavailable = "unavailable"
	FallbackError       = "error"
	FallbackEmpty       = "empty"
)

// FallbackRecorder is notified when the recommended sort degrades to newest.
type FallbackRecorder interface {
	RecommendationFallback(reason string)
}

type recKey struct {
	gen    domain.Generation
	userID string
}

// recEntry is the outcome of one lookup: the ids to rank by, or the reason
// the generation falls back to newest.
type recEntry struct {
	ids    []string
	reason string
}

const defaultLookupTimeout = 2 * time.Second

type PlannerOption func(*Planner)

// WithLookupTimeout bounds a single recommendation lookup. The listing query
// is not charged for it.
func WithLookupTimeout(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d > 0 {
			p.lookupTimeout = d
		}
	}
}

// Planner resolves the asynchronous inputs of a query (the recommendation
// list) and hands them to Compile. The outcome of the first lookup of a
// generation and user, fallback included, holds for every later page of it.
type Planner struct {
	recommender   domain.Recommender
	recorder      FallbackRecorder
	logger        *zap.Logger
	lookupTimeout time.Duration

	group singleflight.Group
	mu    sync.Mutex
	cache map[recKey]recEntry
}

func NewPlanner(recommender domain.Recommender, recorder FallbackRecorder, logger *zap.Logger, opts ...PlannerOption) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Planner{
		recommender:   recommender,
		recorder:      recorder,
		logger:        logger.Named("query_planner"),
		lookupTimeout: defaultLookupTimeout,
		cache:         make(map[recKey]recEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan compiles the descriptor for one page of a generation. Generation 0
// means the caller does not track generations and disables reuse.
func (p *Planner) Plan(ctx context.Context, state domain.FilterState, gen domain.Generation, page domain.Page, userID string) domain.QueryDescriptor {
	if state.Sort != domain.SortRecommended {
		return Compile(state, page, nil)
	}

	ctx, span := otel.Tracer("discovery-query").Start(ctx, "Planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.Int64("generation", int64(gen)), attribute.Int("offset", page.Offset))

	ids, reason := p.recommendations(ctx, gen, userID)
	if reason != "" {
		span.SetAttributes(attribute.String("fallback", reason))
		if p.recorder != nil {
			p.recorder.RecommendationFallback(reason)
		}
	}
	return Compile(state, page, ids)
}

func (p *Planner) recommendations(ctx context.Context, gen domain.Generation, userID string) ([]string, string) {
	if userID == "" {
		return nil, FallbackNoUser
	}
	if p.recommender == nil {
		return nil, FallbackUnavailable
	}

	key := recKey{gen: gen, userID: userID}
	if gen != 0 {
		p.mu.Lock()
		e, ok := p.cache[key]
		p.mu.Unlock()
		if ok {
			return e.ids, e.reason
		}
	}

	e := p.lookup(ctx, gen, userID)

	if gen != 0 {
		p.mu.Lock()
		for k := range p.cache {
			if k.gen < gen {
				delete(p.cache, k)
			}
		}
		if first, ok := p.cache[key]; ok {
			e = first
		} else {
			p.cache[key] = e
		}
		p.mu.Unlock()
	}
	return e.ids, e.reason
}

func (p *Planner) lookup(ctx context.Context, gen domain.Generation, userID string) recEntry {
	ctx, cancel := context.WithTimeout(ctx, p.lookupTimeout)
	defer cancel()

	ch := p.group.DoChan(fmt.Sprintf("%d/%s", gen, userID), func() (interface{}, error) {
		return p.recommender.Recommend(ctx, userID)
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			ids, _ := res.Val.([]string)
			if len(ids) == 0 {
				p.logger.Debug("recommender returned no ids, falling back to newest", zap.String("user_id", userID))
				return recEntry{reason: FallbackEmpty}
			}
			return recEntry{ids: ids}
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.logger.Warn("recommendation lookup failed, falling back to newest",
		zap.String("user_id", userID), zap.Uint64("generation", uint64(gen)), zap.Error(err))
	return recEntry{reason: FallbackError}
}
