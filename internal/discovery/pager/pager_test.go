package pager

import (
	"fmt"
	"testing"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listings(prefix string, n int) []domain.Listing {
	out := make([]domain.Listing, n)
	for i := range out {
		out[i] = domain.Listing{ID: fmt.Sprintf("%s-%02d", prefix, i)}
	}
	return out
}

func TestPagerTwoPagesExhaust(t *testing.T) {
	p := New(domain.PageSize)
	p.Reset(1)

	t1, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, domain.Page{Offset: 0, Limit: 20}, t1.Page)
	n, accepted := p.Complete(t1, listings("a", 20))
	require.True(t, accepted)
	assert.Equal(t, 20, n)
	assert.True(t, p.Snapshot().HasMore)

	t2, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, 20, t2.Page.Offset)
	_, accepted = p.Complete(t2, listings("b", 14))
	require.True(t, accepted)

	snap := p.Snapshot()
	assert.Len(t, snap.Items, 34)
	assert.False(t, snap.HasMore)
	assert.Equal(t, 40, snap.Offset)

	_, ok = p.Begin()
	assert.False(t, ok, "nothing more to load")
}

func TestPagerBeginIsIdempotentWhileInFlight(t *testing.T) {
	p := New(domain.PageSize)
	p.Reset(1)

	t1, ok := p.Begin()
	require.True(t, ok)
	_, ok = p.Begin()
	assert.False(t, ok)
	_, ok = p.Begin()
	assert.False(t, ok)

	p.Complete(t1, listings("a", 20))
	snap := p.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.Equal(t, 20, snap.Offset)
}

func TestPagerDiscardsStaleGeneration(t *testing.T) {
	p := New(domain.PageSize)
	p.Reset(1)
	stale, ok := p.Begin()
	require.True(t, ok)

	p.Reset(2)
	fresh, ok := p.Begin()
	require.True(t, ok)

	n, accepted := p.Complete(stale, listings("old", 20))
	assert.False(t, accepted)
	assert.Zero(t, n)
	assert.Empty(t, p.Snapshot().Items)
	assert.True(t, p.Snapshot().InFlight, "stale completion must not release the current request")

	_, accepted = p.Complete(fresh, listings("new", 5))
	require.True(t, accepted)
	snap := p.Snapshot()
	assert.Len(t, snap.Items, 5)
	assert.Equal(t, domain.Generation(2), snap.Generation)
	assert.Equal(t, "new-00", snap.Items[0].ID)
}

func TestPagerDeduplicatesAndKeepsOrder(t *testing.T) {
	p := New(3)
	p.Reset(1)

	t1, _ := p.Begin()
	p.Complete(t1, []domain.Listing{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	t2, _ := p.Begin()
	n, _ := p.Complete(t2, []domain.Listing{{ID: "a"}, {ID: "d"}, {ID: "e"}})
	assert.Equal(t, 2, n)

	ids := []string{}
	for _, it := range p.Snapshot().Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, ids)
	assert.True(t, p.Snapshot().HasMore, "a full page was returned")
}

func TestPagerFailAllowsRetryAtSameOffset(t *testing.T) {
	p := New(domain.PageSize)
	p.Reset(4)
	t1, _ := p.Begin()
	p.Complete(t1, listings("a", 20))

	t2, ok := p.Begin()
	require.True(t, ok)
	assert.True(t, p.Fail(t2))
	assert.Len(t, p.Snapshot().Items, 20)

	retry, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, t2, retry)
}

func TestPagerCompleteNUsesBackendCount(t *testing.T) {
	p := New(domain.PageSize)
	p.Reset(1)
	t1, _ := p.Begin()
	p.CompleteN(t1, listings("a", 18), 20)
	assert.True(t, p.Snapshot().HasMore)
}
