// Package worker consumes order lifecycle events and advances freshly placed
// orders into processing.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/messaging"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const (
	keyDedup = "dedup:%s:%s"
	ttlDedup = 48 * time.Hour

	AcceptedNote = "Order accepted for processing"
)

// Orders is the slice of the order repository the processor touches.
type Orders interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	SetStatus(ctx context.Context, id string, entry domain.StatusEntry) error
}

// Deduper records which events have already been handled.
type Deduper interface {
	// Claim returns false when key was claimed before.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisDeduper struct {
	client *redis.Client
	group  string
}

func NewRedisDeduper(client *redis.Client, group string) *RedisDeduper {
	return &RedisDeduper{client: client, group: group}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, fmt.Sprintf(keyDedup, d.group, key), "1", ttlDedup).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, fmt.Sprintf(keyDedup, d.group, key)).Err()
}

type OrderProcessor struct {
	orders  Orders
	dedup   Deduper
	logger  *slog.Logger
	now     func() time.Time
	handled metric.Int64Counter
}

// NewOrderProcessor builds a processor. With a nil dedup, redelivered events
// are handled again.
func NewOrderProcessor(orders Orders, dedup Deduper, logger *slog.Logger) (*OrderProcessor, error) {
	handled, err := otel.Meter("worker").Int64Counter("worker.events_handled",
		metric.WithDescription("Order events handled by type and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker.events_handled counter: %w", err)
	}

	return &OrderProcessor{
		orders:  orders,
		dedup:   dedup,
		logger:  logger,
		now:     time.Now,
		handled: handled,
	}, nil
}

// Handle is a messaging.Handler. Malformed payloads are logged and skipped
// so one bad record cannot wedge the partition.
func (p *OrderProcessor) Handle(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.logger.Warn("skipping malformed order event", "error", err, "offset", msg.Offset)
		p.count(ctx, "unknown", "malformed")
		return nil
	}
	if event.OrderID == "" {
		p.logger.Warn("skipping order event without order id", "type", event.Type, "offset", msg.Offset)
		p.count(ctx, event.Type, "malformed")
		return nil
	}

	key := event.OrderID + ":" + event.Type + ":" + string(event.Status)
	if p.dedup != nil {
		fresh, err := p.dedup.Claim(ctx, key)
		if err != nil {
			p.logger.Warn("dedup unavailable, handling anyway", "error", err)
		} else if !fresh {
			p.logger.Debug("duplicate order event", "order_id", event.OrderID, "type", event.Type)
			p.count(ctx, event.Type, "duplicate")
			return nil
		}
	}

	outcome, err := p.dispatch(ctx, event)
	if err != nil {
		if p.dedup != nil {
			if rerr := p.dedup.Release(ctx, key); rerr != nil {
				p.logger.Warn("release dedup key", "error", rerr, "key", key)
			}
		}
		p.count(ctx, event.Type, "error")
		return err
	}

	p.count(ctx, event.Type, outcome)
	return nil
}

func (p *OrderProcessor) dispatch(ctx context.Context, event domain.OrderEvent) (string, error) {
	switch event.Type {
	case domain.EventOrderCreated:
		return p.accept(ctx, event)
	case domain.EventOrderStatusChanged, domain.EventOrderCancelled:
		p.logger.Info("order status observed",
			"order_id", event.OrderID,
			"order_number", event.OrderNumber,
			"status", event.Status,
		)
		return "observed", nil
	default:
		p.logger.Warn("ignoring unknown order event", "type", event.Type, "order_id", event.OrderID)
		return "ignored", nil
	}
}

// accept moves a still-pending order to processing.
func (p *OrderProcessor) accept(ctx context.Context, event domain.OrderEvent) (string, error) {
	ctx, span := otel.Tracer("worker").Start(ctx, "OrderProcessor.accept")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", event.OrderID))

	o, err := p.orders.Get(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Warn("order from event not found", "order_id", event.OrderID)
			return "missing", nil
		}
		span.RecordError(err)
		return "", fmt.Errorf("get order %s: %w", event.OrderID, err)
	}

	if o.Status != domain.OrderStatusPending {
		p.logger.Info("order already past pending", "order_id", o.ID, "status", o.Status)
		return "skipped", nil
	}

	entry := domain.StatusEntry{
		Status:    domain.OrderStatusProcessing,
		Note:      AcceptedNote,
		CreatedAt: p.now(),
	}
	if err := p.orders.SetStatus(ctx, o.ID, entry); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("set order %s processing: %w", o.ID, err)
	}

	p.logger.Info("order accepted", "order_id", o.ID, "order_number", o.OrderNumber)
	return "accepted", nil
}

func (p *OrderProcessor) count(ctx context.Context, eventType, outcome string) {
	p.handled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("outcome", outcome),
	))
}
