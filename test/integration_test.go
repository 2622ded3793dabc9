//go:build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cart"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/catalog"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/messaging"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/order"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/promotion"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store/postgres"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/worker"
)

type services struct {
	store      *postgres.Store
	products   *catalog.ProductService
	categories *catalog.CategoryService
	carts      *cart.Service
	promotions *promotion.Service
	orders     *order.Service
}

func newServices(t *testing.T, pg *PostgresSetup, publisher order.Publisher) *services {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := postgres.New(pg.DB)

	carts, err := cart.NewService(st.Products(), st.Carts(), st.AppliedCoupons(), nil, logger)
	if err != nil {
		t.Fatalf("failed to create cart service: %v", err)
	}

	promotions, err := promotion.NewService(st.Promotions(), st.AppliedCoupons(), st.Carts(), carts, logger)
	if err != nil {
		t.Fatalf("failed to create promotion service: %v", err)
	}

	orders, err := order.NewService(st.Orders(), st.Products(), carts, publisher, logger)
	if err != nil {
		t.Fatalf("failed to create order service: %v", err)
	}

	return &services{
		store:      st,
		products:   catalog.NewProductService(st.Products(), st.Categories(), logger),
		categories: catalog.NewCategoryService(st.Categories(), st.Products(), logger),
		carts:      carts,
		promotions: promotions,
		orders:     orders,
	}
}

func address() *order.AddressInput {
	return &order.AddressInput{
		FirstName: "Grace", LastName: "Hopper", AddressLine1: "1 Navy Yard",
		City: "Arlington", State: "VA", PostalCode: "22202", Country: "US",
	}
}

func TestCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	svc := newServices(t, pg, nil)

	lighting, err := svc.categories.Create(ctx, catalog.CategoryInput{Name: "Home Lighting"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	if lighting.Slug != "home-lighting" {
		t.Fatalf("expected slug home-lighting, got %s", lighting.Slug)
	}

	lamp, err := svc.products.Create(ctx, catalog.ProductInput{
		Name:       "Desk Lamp",
		Price:      domain.Dollars("25.00"),
		CategoryID: &lighting.ID,
		Stock:      5,
		SKU:        "LAMP-1",
		Tags:       []string{"desk"},
		Images:     []string{"https://cdn.example.com/lamp.png"},
		Variants:   []catalog.VariantInput{{Color: "black", SKU: "LAMP-1-BLK", Stock: 2}},
	})
	if err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	if len(lamp.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(lamp.Variants))
	}

	code := "save10"
	if _, err := svc.promotions.Create(ctx, promotion.Input{
		Name:      "Ten percent",
		Code:      &code,
		Type:      domain.PromotionPercentage,
		Value:     domain.Dollars("10"),
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("failed to create promotion: %v", err)
	}

	owner := domain.Owner{SessionID: "sess-" + uuid.NewString()}
	c, err := svc.carts.AddItem(ctx, owner, cart.AddItemInput{ProductID: lamp.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("failed to add item: %v", err)
	}
	if !c.Subtotal.Equal(domain.Dollars("50")) {
		t.Fatalf("expected subtotal 50, got %s", c.Subtotal)
	}
	if c.Items[0].Product == nil || c.Items[0].Product.Image != "https://cdn.example.com/lamp.png" {
		t.Fatalf("expected cart item to carry product summary, got %+v", c.Items[0].Product)
	}

	applied, err := svc.promotions.ApplyCoupon(ctx, owner, "SAVE10")
	if err != nil {
		t.Fatalf("failed to apply coupon: %v", err)
	}
	if !applied.AppliedCoupon.Discount.Equal(domain.Dollars("5")) {
		t.Fatalf("expected discount 5, got %s", applied.AppliedCoupon.Discount)
	}

	if _, err := svc.promotions.ApplyCoupon(ctx, owner, "SAVE10"); err == nil {
		t.Fatal("expected applying the same coupon twice to fail")
	}

	placed, err := svc.orders.Create(ctx, owner, nil, order.CreateInput{
		ShippingAddress: address(),
		BillingAddress:  address(),
		PaymentMethod:   "card",
		ShippingMethod:  "standard",
		Email:           "grace@example.com",
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	prefix := time.Now().Format("060102") + "-"
	if !strings.HasPrefix(placed.OrderNumber, prefix) {
		t.Fatalf("expected order number with prefix %s, got %s", prefix, placed.OrderNumber)
	}

	stored, err := svc.store.Orders().Get(ctx, placed.ID)
	if err != nil {
		t.Fatalf("failed to load order: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Quantity != 2 {
		t.Fatalf("unexpected order items: %+v", stored.Items)
	}
	if len(stored.Addresses) != 2 || stored.Addresses[0].Type != domain.AddressShipping {
		t.Fatalf("unexpected addresses: %+v", stored.Addresses)
	}
	if len(stored.StatusHistory) != 1 || stored.StatusHistory[0].Status != domain.OrderStatusPending {
		t.Fatalf("unexpected status history: %+v", stored.StatusHistory)
	}
	if !stored.DiscountTotal.Equal(domain.Dollars("5")) {
		t.Fatalf("expected discount total 5, got %s", stored.DiscountTotal)
	}
	want := stored.Subtotal.Sub(stored.DiscountTotal).Add(stored.TaxTotal).Add(stored.ShippingTotal)
	if !stored.GrandTotal.Equal(want) {
		t.Fatalf("grand total %s does not add up to %s", stored.GrandTotal, want)
	}

	after, err := svc.store.Products().Get(ctx, lamp.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if after.Stock != 3 {
		t.Fatalf("expected stock 3 after checkout, got %d", after.Stock)
	}

	emptied, err := svc.carts.View(ctx, owner)
	if err != nil {
		t.Fatalf("failed to view cart: %v", err)
	}
	if len(emptied.Items) != 0 || len(emptied.Coupons) != 0 {
		t.Fatalf("expected empty cart after checkout, got %d items and %d coupons", len(emptied.Items), len(emptied.Coupons))
	}

	cancelled, err := svc.orders.Cancel(ctx, placed.ID, &domain.Principal{UserID: uuid.NewString(), Role: domain.RoleCustomer}, "")
	if err != nil {
		t.Fatalf("failed to cancel guest order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	restored, err := svc.store.Products().Get(ctx, lamp.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if restored.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", restored.Stock)
	}
}

func TestCategoryGuardsOnPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	svc := newServices(t, pg, nil)

	outdoor, err := svc.categories.Create(ctx, catalog.CategoryInput{Name: "Outdoor"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	tents, err := svc.categories.Create(ctx, catalog.CategoryInput{Name: "Tents", ParentID: &outdoor.ID})
	if err != nil {
		t.Fatalf("failed to create subcategory: %v", err)
	}
	if tents.Level != 2 {
		t.Fatalf("expected level 2, got %d", tents.Level)
	}

	if _, err := svc.categories.Create(ctx, catalog.CategoryInput{Name: "outdoor"}); err == nil {
		t.Fatal("expected duplicate slug to be rejected")
	}

	if err := svc.categories.Delete(ctx, outdoor.ID); err == nil {
		t.Fatal("expected delete of a category with subcategories to fail")
	}

	tree, err := svc.categories.Tree(ctx)
	if err != nil {
		t.Fatalf("failed to build tree: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Subcategories) != 1 {
		t.Fatalf("unexpected tree shape: %+v", tree)
	}

	if _, err := svc.categories.Get(ctx, "not-a-uuid"); err == nil {
		t.Fatal("expected malformed id to read as not found")
	}
}

func TestOrderEventsAdvanceOrders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	topic := "order.events." + uuid.NewString()[:8]
	producer := messaging.NewProducer(brokers, topic)
	defer func() { _ = producer.Close() }()

	svc := newServices(t, pg, producer)

	lamp, err := svc.products.Create(ctx, catalog.ProductInput{
		Name: "Floor Lamp", Price: domain.Dollars("120.00"), Stock: 3, SKU: "LAMP-FLOOR",
	})
	if err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	userID := uuid.NewString()
	SeedProfile(ctx, t, pg.DB, userID, "linus@example.com", "customer")
	principal := &domain.Principal{UserID: userID, Email: "linus@example.com", Role: domain.RoleCustomer}
	owner := domain.Owner{UserID: userID}

	if _, err := svc.carts.AddItem(ctx, owner, cart.AddItemInput{ProductID: lamp.ID, Quantity: 1}); err != nil {
		t.Fatalf("failed to add item: %v", err)
	}

	placed, err := svc.orders.Create(ctx, owner, principal, order.CreateInput{
		ShippingAddress: address(),
		BillingAddress:  address(),
		PaymentMethod:   "card",
		ShippingMethod:  "express",
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor, err := worker.NewOrderProcessor(svc.store.Orders(), nil, logger)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, topic, "order-processor-test", messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	seen := make(chan messaging.Message, 1)
	go func() {
		_ = consumer.Consume(consumeCtx, func(ctx context.Context, msg messaging.Message) error {
			if err := processor.Handle(ctx, msg); err != nil {
				return err
			}
			select {
			case seen <- msg:
			default:
			}
			return nil
		})
	}()

	select {
	case msg := <-seen:
		if msg.Key != placed.ID {
			t.Fatalf("expected message key %s, got %s", placed.ID, msg.Key)
		}
		if msg.EventType != domain.EventOrderCreated {
			t.Fatalf("expected event type %s, got %s", domain.EventOrderCreated, msg.EventType)
		}
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for order event")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := svc.orders.Get(ctx, placed.ID, principal)
		if err != nil {
			t.Fatalf("failed to get order: %v", err)
		}
		if got.Status == domain.OrderStatusProcessing {
			last := got.StatusHistory[len(got.StatusHistory)-1]
			if last.Note != worker.AcceptedNote {
				t.Fatalf("expected note %q, got %q", worker.AcceptedNote, last.Note)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("order still %s after event was handled", got.Status)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
