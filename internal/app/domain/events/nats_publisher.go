// Package events announces recorded visits to downstream consumers over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const DefaultSubject = "visits.recorded"

type Publisher interface {
	PublishVisitRecorded(ctx context.Context, event models.VisitRecordedEvent) error
	Close()
}

type conn interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*NATSPublisher)(nil)

type NATSPublisher struct {
	logger  *zap.Logger
	conn    conn
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("loci-visits"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to NATS", zap.String("url", url))

	p := newNATSPublisher(nc, subject, logger)
	p.nc = nc
	return p, nil
}

func newNATSPublisher(c conn, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{logger: logger, conn: c, subject: subject}
}

func (p *NATSPublisher) PublishVisitRecorded(ctx context.Context, event models.VisitRecordedEvent) error {
	_, span := otel.Tracer("VisitEvents").Start(ctx, "PublishVisitRecorded", trace.WithAttributes(
		attribute.String("messaging.destination", p.subject),
		attribute.String("visit.id", event.VisitID.String()),
	))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return fmt.Errorf("failed to marshal visit event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("failed to publish visit event", zap.Error(err), zap.String("visit_id", event.VisitID.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("failed to publish visit event: %w", err)
	}

	p.logger.Debug("visit event published", zap.String("visit_id", event.VisitID.String()), zap.String("subject", p.subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
		p.logger.Info("NATS connection closed")
	}
}
