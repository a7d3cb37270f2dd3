package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/wheelmarket/listing-service/internal/config"
	"github.com/wheelmarket/listing-service/internal/entity"
	"go.uber.org/zap"
)

const (
	ListingPublishedSubject   = "listing.published"
	ListingDeactivatedSubject = "listing.deactivated"
	ListingDeletedSubject     = "listing.deleted"
)

type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

type listingEventPayload struct {
	ID string `json:"id"`
}

func NewNATSPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))

	return &Publisher{nc: nc, logger: logger}, nil
}

func (p *Publisher) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Debug("published NATS message", zap.String("subject", subject))
	return nil
}

func (p *Publisher) PublishListingPublished(ctx context.Context, listing *entity.Listing) error {
	return p.publish(ListingPublishedSubject, listing)
}

func (p *Publisher) PublishListingDeactivated(ctx context.Context, listingID string) error {
	return p.publish(ListingDeactivatedSubject, listingEventPayload{ID: listingID})
}

func (p *Publisher) PublishListingDeleted(ctx context.Context, listingID string) error {
	return p.publish(ListingDeletedSubject, listingEventPayload{ID: listingID})
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("error draining NATS connection", zap.Error(err))
		}
		p.nc.Close()
	}
}
