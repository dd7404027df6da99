package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (r *recordingConn) Publish(subj string, data []byte) error {
	r.subject, r.data = subj, data
	return r.err
}

func TestPublisher_PublishSearchExecuted(t *testing.T) {
	rc := &recordingConn{}
	p := &Publisher{nc: rc, logger: zap.NewNop()}
	event := domain.SearchExecuted{
		EventID:    "e1",
		SessionID:  "s1",
		Generation: 4,
		Category:   domain.CategoryRealEstate,
		Sort:       domain.SortNewest,
		HasMore:    true,
		OccurredAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishSearchExecuted(context.Background(), event))
	assert.Equal(t, SearchExecutedSubject, rc.subject)

	var decoded domain.SearchExecuted
	require.NoError(t, json.Unmarshal(rc.data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{nc: &recordingConn{err: errors.New("nats: connection closed")}, logger: zap.NewNop()}
	err := p.PublishSearchExecuted(context.Background(), domain.SearchExecuted{EventID: "e2"})
	assert.Error(t, err)
}

func TestPublisher_CloseWithoutConnection(t *testing.T) {
	p := &Publisher{nc: &recordingConn{}, logger: zap.NewNop()}
	assert.NotPanics(t, p.Close)
}
