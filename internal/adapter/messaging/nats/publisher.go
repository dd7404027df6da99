package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SearchExecutedSubject = "discovery.search.executed"

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
}

type Publisher struct {
	nc     conn
	raw    *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	logger = logger.Named("nats_publisher")
	opts := []nats.Option{
		nats.Name("discovery-service"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return &Publisher{nc: nc, raw: nc, logger: logger}, nil
}

// PublishSearchExecuted announces the first page of a search generation.
func (p *Publisher) PublishSearchExecuted(_ context.Context, event domain.SearchExecuted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", SearchExecutedSubject, err)
	}
	if err := p.nc.Publish(SearchExecutedSubject, data); err != nil {
		return fmt.Errorf("failed to publish NATS message for %s: %w", SearchExecutedSubject, err)
	}
	p.logger.Debug("published",
		zap.String("subject", SearchExecutedSubject),
		zap.String("event_id", event.EventID),
		zap.Uint64("generation", event.Generation),
	)
	return nil
}

// Close flushes buffered messages before closing the connection.
func (p *Publisher) Close() {
	if p.raw == nil || p.raw.IsClosed() {
		return
	}
	if err := p.raw.Drain(); err != nil {
		p.logger.Error("error draining NATS connection", zap.Error(err))
		p.raw.Close()
	}
}
