package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRecommender struct{ mock.Mock }

func (m *MockRecommender) Recommend(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// hangingRecommender answers only when its context is done.
type hangingRecommender struct{}

func (hangingRecommender) Recommend(ctx context.Context, userID string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingFallbacks struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingFallbacks) RecommendationFallback(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func recommendedState() domain.FilterState {
	s := domain.DefaultFilterState()
	s.Sort = domain.SortRecommended
	return s
}

func TestPlannerRecommended(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()

	t.Run("UsesRecommendedIDs", func(t *testing.T) {
		rec := new(MockRecommender)
		rec.On("Recommend", mock.Anything, "user-7").Return([]string{"l1", "l2"}, nil).Once()
		p := NewPlanner(rec, nil, logger)

		d := p.Plan(ctx, recommendedState(), 3, domain.Page{}, "user-7")
		ids, ok := findPredicate(d, domain.FieldID)
		require.True(t, ok)
		assert.Equal(t, []string{"l1", "l2"}, ids.Value)
		assert.False(t, d.SortFallback)
		rec.AssertExpectations(t)
	})

	t.Run("FailingRecommenderFallsBackToNewest", func(t *testing.T) {
		rec := new(MockRecommender)
		rec.On("Recommend", mock.Anything, "user-7").Return(nil, errors.New("recommender down")).Once()
		fallbacks := &recordingFallbacks{}
		p := NewPlanner(rec, fallbacks, logger)

		d := p.Plan(ctx, recommendedState(), 3, domain.Page{}, "user-7")
		assert.True(t, d.SortFallback)
		assert.Equal(t, []domain.SortField{{Field: domain.FieldCreatedAt, Descending: true}}, d.Sort)
		_, ok := findPredicate(d, domain.FieldID)
		assert.False(t, ok)
		assert.Equal(t, []string{FallbackError}, fallbacks.reasons)
		rec.AssertExpectations(t)
	})

	t.Run("EmptyRecommendationsFallBack", func(t *testing.T) {
		rec := new(MockRecommender)
		rec.On("Recommend", mock.Anything, "user-7").Return([]string{}, nil).Once()
		fallbacks := &recordingFallbacks{}
		p := NewPlanner(rec, fallbacks, logger)

		d := p.Plan(ctx, recommendedState(), 3, domain.Page{}, "user-7")
		assert.True(t, d.SortFallback)
		assert.Equal(t, []string{FallbackEmpty}, fallbacks.reasons)
	})

	t.Run("AnonymousUserIsNeverSentToRecommender", func(t *testing.T) {
		rec := new(MockRecommender)
		fallbacks := &recordingFallbacks{}
		p := NewPlanner(rec, fallbacks, logger)

		d := p.Plan(ctx, recommendedState(), 3, domain.Page{}, "")
		assert.True(t, d.SortFallback)
		assert.Equal(t, []string{FallbackNoUser}, fallbacks.reasons)
		rec.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything)
	})

	t.Run("LaterPagesReuseGenerationRecommendations", func(t *testing.T) {
		rec := new(MockRecommender)
		rec.On("Recommend", mock.Anything, "user-7").Return([]string{"l1"}, nil).Once()
		rec.On("Recommend", mock.Anything, "user-7").Return([]string{"l9"}, nil).Once()
		p := NewPlanner(rec, nil, logger)

		first := p.Plan(ctx, recommendedState(), 5, domain.Page{Offset: 0}, "user-7")
		second := p.Plan(ctx, recommendedState(), 5, domain.Page{Offset: 20}, "user-7")
		ids1, _ := findPredicate(first, domain.FieldID)
		ids2, _ := findPredicate(second, domain.FieldID)
		assert.Equal(t, ids1.Value, ids2.Value)

		third := p.Plan(ctx, recommendedState(), 6, domain.Page{Offset: 0}, "user-7")
		ids3, _ := findPredicate(third, domain.FieldID)
		assert.Equal(t, []string{"l9"}, ids3.Value)
		rec.AssertExpectations(t)
	})

	t.Run("FallbackHoldsForTheWholeGeneration", func(t *testing.T) {
		rec := new(MockRecommender)
		rec.On("Recommend", mock.Anything, "user-7").Return(nil, errors.New("recommender down")).Once()
		rec.On("Recommend", mock.Anything, "user-7").Return([]string{"l1", "l2"}, nil).Once()
		fallbacks := &recordingFallbacks{}
		p := NewPlanner(rec, fallbacks, logger)

		first := p.Plan(ctx, recommendedState(), 7, domain.Page{Offset: 0, Limit: domain.PageSize}, "user-7")
		second := p.Plan(ctx, recommendedState(), 7, domain.Page{Offset: 20, Limit: domain.PageSize}, "user-7")
		for _, d := range []domain.QueryDescriptor{first, second} {
			assert.True(t, d.SortFallback)
			assert.Equal(t, []domain.SortField{{Field: domain.FieldCreatedAt, Descending: true}}, d.Sort)
			_, ok := findPredicate(d, domain.FieldID)
			assert.False(t, ok)
		}
		rec.AssertNumberOfCalls(t, "Recommend", 1)
		assert.Equal(t, []string{FallbackError, FallbackError}, fallbacks.reasons)

		next := p.Plan(ctx, recommendedState(), 8, domain.Page{}, "user-7")
		ids, ok := findPredicate(next, domain.FieldID)
		require.True(t, ok)
		assert.Equal(t, []string{"l1", "l2"}, ids.Value)
		rec.AssertExpectations(t)
	})

	t.Run("HangingRecommenderIsCutOff", func(t *testing.T) {
		p := NewPlanner(hangingRecommender{}, nil, logger, WithLookupTimeout(20*time.Millisecond))

		started := time.Now()
		d := p.Plan(ctx, recommendedState(), 9, domain.Page{}, "user-7")
		assert.True(t, d.SortFallback)
		assert.Less(t, time.Since(started), time.Second)
	})

	t.Run("OtherSortsSkipRecommender", func(t *testing.T) {
		rec := new(MockRecommender)
		p := NewPlanner(rec, nil, logger)
		d := p.Plan(ctx, domain.DefaultFilterState(), 1, domain.Page{}, "user-7")
		assert.False(t, d.SortFallback)
		rec.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything)
	})
}
