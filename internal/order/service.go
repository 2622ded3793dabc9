package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

var tracer = otel.Tracer("order")

// CartAccess is the part of the cart service checkout needs.
type CartAccess interface {
	Find(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
}

// Publisher emits order lifecycle events. messaging.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	orders    store.OrderRepository
	products  store.ProductRepository
	carts     CartAccess
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	created  metric.Int64Counter
	statuses metric.Int64Counter
	failures metric.Int64Counter
}

// NewService builds the order service. publisher may be nil, in which case no
// events are emitted.
func NewService(
	orders store.OrderRepository,
	products store.ProductRepository,
	carts CartAccess,
	publisher Publisher,
	logger *slog.Logger,
) (*Service, error) {
	meter := otel.Meter("order")

	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.created counter: %w", err)
	}

	statuses, err := meter.Int64Counter("orders.status_changes",
		metric.WithDescription("Order status transitions by target status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.status_changes counter: %w", err)
	}

	failures, err := meter.Int64Counter("side_effect.failures",
		metric.WithDescription("Best-effort steps that failed after the primary write"),
	)
	if err != nil {
		return nil, fmt.Errorf("create side_effect.failures counter: %w", err)
	}

	return &Service{
		orders:    orders,
		products:  products,
		carts:     carts,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		created:   created,
		statuses:  statuses,
		failures:  failures,
	}, nil
}

type AddressInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

func (a AddressInput) validate(field string) []string {
	var details []string
	required := []struct{ name, value string }{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"addressLine1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			details = append(details, field+"."+r.name+" is required")
		}
	}
	return details
}

func (a AddressInput) toDomain(t domain.AddressType) domain.Address {
	return domain.Address{
		Type:         t,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}

type CreateInput struct {
	ShippingAddress *AddressInput `json:"shippingAddress"`
	BillingAddress  *AddressInput `json:"billingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
	ShippingMethod  string        `json:"shippingMethod"`
	Notes           string        `json:"notes,omitempty"`
	Email           string        `json:"email,omitempty"`
}

func (in CreateInput) validate(guest bool) error {
	var details []string
	if in.ShippingAddress == nil {
		details = append(details, "shippingAddress is required")
	} else {
		details = append(details, in.ShippingAddress.validate("shippingAddress")...)
	}
	if in.BillingAddress == nil {
		details = append(details, "billingAddress is required")
	} else {
		details = append(details, in.BillingAddress.validate("billingAddress")...)
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		details = append(details, "paymentMethod is required")
	}
	if strings.TrimSpace(in.ShippingMethod) == "" {
		details = append(details, "shippingMethod is required")
	}
	if guest && !strings.Contains(in.Email, "@") {
		details = append(details, "a valid email is required for guest checkout")
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

// Create turns the owner's cart into an order. The cart's persisted totals
// are copied verbatim. Stock decrement, cart reset and event publication run
// after the order is stored and never fail the call.
func (s *Service) Create(ctx context.Context, owner domain.Owner, principal *domain.Principal, in CreateInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create")
	defer span.End()

	if err := in.validate(principal == nil); err != nil {
		return nil, err
	}

	c, err := s.carts.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	eligible := c.EligibleItems()
	if len(eligible) == 0 {
		return nil, apperr.PreconditionFailed("cart is empty")
	}

	items := make([]domain.OrderItem, 0, len(eligible))
	for _, it := range eligible {
		product, err := s.products.Get(ctx, it.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.InsufficientStock("not enough stock for a product")
		}
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product.Stock < it.Quantity {
			return nil, apperr.InsufficientStock("not enough stock for %s", product.Name)
		}

		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      product.Name,
			SKU:       product.SKU,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	o := &domain.Order{
		Email:          in.Email,
		Status:         domain.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		ShippingMethod: in.ShippingMethod,
		Totals:         c.Totals,
		Notes:          in.Notes,
		Items:          items,
		Addresses: []domain.Address{
			in.ShippingAddress.toDomain(domain.AddressShipping),
			in.BillingAddress.toDomain(domain.AddressBilling),
		},
		StatusHistory: []domain.StatusEntry{{Status: domain.OrderStatusPending, Note: "Order created"}},
	}
	if principal != nil {
		uid := principal.UserID
		o.UserID = &uid
		o.Email = principal.Email
	}

	if err := s.insert(ctx, o); err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if err := s.products.IncrementStock(ctx, it.ProductID, -it.Quantity); err != nil {
			s.sideEffectFailed(ctx, "decrement_stock", err, "order_id", o.ID, "product_id", it.ProductID)
		}
	}

	if _, err := s.carts.Clear(ctx, owner); err != nil {
		s.sideEffectFailed(ctx, "reset_cart", err, "order_id", o.ID, "cart_id", c.ID)
	}

	s.created.Add(ctx, 1)
	s.publish(ctx, domain.EventOrderCreated, o, "")
	s.logger.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "grand_total", o.GrandTotal.String())

	return o, nil
}

const numberAttempts = 3

// insert assigns the next order number for today and stores the order,
// retrying when another order claimed the same number first.
func (s *Service) insert(ctx context.Context, o *domain.Order) error {
	prefix := s.now().Format("060102") + "-"

	for attempt := 0; attempt < numberAttempts; attempt++ {
		latest, err := s.orders.LatestNumber(ctx, prefix)
		if err != nil {
			return fmt.Errorf("latest order number: %w", err)
		}
		o.OrderNumber = NextNumber(prefix, latest)

		err = s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("create order: %w", err)
		}
	}
	return apperr.Conflict("could not allocate an order number, retry the request")
}

// NextNumber returns the order number following latest within prefix, for
// example "240131-0007" after "240131-0006". An empty latest starts at 0001.
func NextNumber(prefix, latest string) string {
	seq := 1
	if n, err := strconv.Atoi(strings.TrimPrefix(latest, prefix)); err == nil && latest != "" {
		seq = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, seq)
}

// Get returns an order the principal may see: admins see all orders, other
// callers see their own and guest orders.
func (s *Service) Get(ctx context.Context, id string, principal *domain.Principal) (*domain.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(principal, o) {
		return nil, apperr.Forbidden("you are not authorized to view this order")
	}
	return o, nil
}

func canAccess(p *domain.Principal, o *domain.Order) bool {
	if p.IsAdmin() || o.UserID == nil {
		return true
	}
	return p != nil && *o.UserID == p.UserID
}

func (s *Service) load(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

type Page struct {
	Orders     []domain.Order   `json:"orders"`
	Pagination store.Pagination `json:"pagination"`
}

// ListForUser returns the user's orders newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, page store.Page) (*Page, error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &Page{Orders: orders, Pagination: page.Of(total)}, nil
}

// UpdateStatus sets any valid status. Transitions are not restricted.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, note string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("status %q is not a valid order status", status))
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	if note == "" {
		note = "Status updated to " + string(status)
	}
	if err := s.orders.SetStatus(ctx, id, domain.StatusEntry{Status: status, Note: note}); err != nil {
		return nil, fmt.Errorf("set order status: %w", err)
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.statuses.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	s.publish(ctx, domain.EventOrderStatusChanged, o, note)
	return o, nil
}

// Cancel moves a pending or processing order to cancelled and restores the
// stock of its items.
func (s *Service) Cancel(ctx context.Context, id string, principal *domain.Principal, reason string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Cancel")
	defer span.End()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(principal, o) {
		return nil, apperr.Forbidden("you are not authorized to cancel this order")
	}
	if !o.Status.Cancellable() {
		return nil, apperr.InvalidState("this order cannot be cancelled")
	}

	note := reason
	if note == "" {
		note = "Order cancelled by user"
	}
	if err := s.orders.SetStatus(ctx, id, domain.StatusEntry{Status: domain.OrderStatusCancelled, Note: note}); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	for _, it := range o.Items {
		if err := s.products.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.sideEffectFailed(ctx, "restore_stock", err, "order_id", o.ID, "product_id", it.ProductID)
		}
	}

	o, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.statuses.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(domain.OrderStatusCancelled))))
	s.publish(ctx, domain.EventOrderCancelled, o, note)
	s.logger.Info("order cancelled", "order_id", o.ID)
	return o, nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *domain.Order, note string) {
	if s.publisher == nil {
		return
	}

	event := domain.OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Email:       o.Email,
		Status:      o.Status,
		GrandTotal:  o.GrandTotal,
		Note:        note,
		Timestamp:   s.now().UTC(),
	}
	if eventType == domain.EventOrderCreated {
		event.Items = o.Items
	}

	if err := s.publisher.Publish(ctx, o.ID, event); err != nil {
		s.sideEffectFailed(ctx, "publish_event", err, "order_id", o.ID, "event", eventType)
	}
}

func (s *Service) sideEffectFailed(ctx context.Context, step string, err error, args ...any) {
	s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	s.logger.Error("order side effect failed", append([]any{"step", step, "error", err}, args...)...)
}
