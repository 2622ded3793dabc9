package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/messaging"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/memory"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func placeOrder(t *testing.T, orders store.OrderRepository, status domain.OrderStatus) *domain.Order {
	t.Helper()
	o := &domain.Order{
		OrderNumber:   "240131-0001",
		Email:         "a@example.com",
		Status:        status,
		StatusHistory: []domain.StatusEntry{{Status: status, Note: "Order created"}},
	}
	require.NoError(t, orders.Create(context.Background(), o))
	return o
}

func message(t *testing.T, event domain.OrderEvent) messaging.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return messaging.Message{Key: event.OrderID, EventType: event.Type, Value: data}
}

func newProcessor(t *testing.T, orders Orders) (*OrderProcessor, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p, err := NewOrderProcessor(orders, NewRedisDeduper(client, "order-processor"), discard)
	require.NoError(t, err)
	return p, mr
}

func TestHandle_AcceptsPendingOrder(t *testing.T) {
	orders := memory.NewStore().Orders()
	o := placeOrder(t, orders, domain.OrderStatusPending)
	p, mr := newProcessor(t, orders)
	ctx := context.Background()

	ev := domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: o.ID, Status: domain.OrderStatusPending}
	require.NoError(t, p.Handle(ctx, message(t, ev)))

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, AcceptedNote, got.StatusHistory[1].Note)
	assert.True(t, mr.Exists("dedup:order-processor:"+o.ID+":order.created:pending"))
}

func TestHandle_DuplicateDeliveryIsSkipped(t *testing.T) {
	orders := memory.NewStore().Orders()
	o := placeOrder(t, orders, domain.OrderStatusPending)
	p, _ := newProcessor(t, orders)
	ctx := context.Background()

	msg := message(t, domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: o.ID, Status: domain.OrderStatusPending})
	require.NoError(t, p.Handle(ctx, msg))
	require.NoError(t, p.Handle(ctx, msg))

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 2)
}

func TestHandle_LeavesAdvancedOrdersAlone(t *testing.T) {
	orders := memory.NewStore().Orders()
	o := placeOrder(t, orders, domain.OrderStatusCancelled)
	p, _ := newProcessor(t, orders)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, message(t, domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: o.ID})))

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
	assert.Len(t, got.StatusHistory, 1)
}

func TestHandle_SkipsBadRecords(t *testing.T) {
	orders := memory.NewStore().Orders()
	p, _ := newProcessor(t, orders)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  messaging.Message
	}{
		{"not json", messaging.Message{Value: []byte("{oops")}},
		{"missing order id", message(t, domain.OrderEvent{Type: domain.EventOrderCreated})},
		{"unknown order", message(t, domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: "nope"})},
		{"unknown type", message(t, domain.OrderEvent{Type: "order.teleported", OrderID: "x"})},
		{"observed status", message(t, domain.OrderEvent{Type: domain.EventOrderCancelled, OrderID: "x", Status: domain.OrderStatusCancelled})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, p.Handle(ctx, tt.msg))
		})
	}
}

type failingOrders struct {
	Orders
}

func (failingOrders) Get(context.Context, string) (*domain.Order, error) {
	return nil, errors.New("connection reset")
}

func TestHandle_FailureReleasesDedupKey(t *testing.T) {
	p, mr := newProcessor(t, failingOrders{})
	ctx := context.Background()

	ev := domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: "o-1", Status: domain.OrderStatusPending}
	err := p.Handle(ctx, message(t, ev))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, mr.Exists("dedup:order-processor:o-1:order.created:pending"))
}

func TestHandle_RedisDownStillProcesses(t *testing.T) {
	orders := memory.NewStore().Orders()
	o := placeOrder(t, orders, domain.OrderStatusPending)
	p, mr := newProcessor(t, orders)
	mr.Close()

	ev := domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: o.ID, Status: domain.OrderStatusPending}
	require.NoError(t, p.Handle(context.Background(), message(t, ev)))

	got, err := orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
}
