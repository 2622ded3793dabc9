// Package memory is an in-process implementation of the store contracts.
// It backs unit tests and the STORE_DRIVER=memory development mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	clock func() time.Time
	last  time.Time

	products      map[string]*domain.Product
	categories    map[string]*domain.Category
	carts         map[string]*domain.Cart
	items         map[string]*domain.LineItem
	coupons       map[string]*domain.AppliedCoupon
	promotions    map[string]*domain.Promotion
	orders        map[string]*domain.Order
	wishlists     map[string]*domain.Wishlist
	wishlistItems map[string]*domain.WishlistItem
	profiles      map[string]*domain.Profile
}

var _ store.Backend = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		clock:         func() time.Time { return time.Now().UTC() },
		products:      map[string]*domain.Product{},
		categories:    map[string]*domain.Category{},
		carts:         map[string]*domain.Cart{},
		items:         map[string]*domain.LineItem{},
		coupons:       map[string]*domain.AppliedCoupon{},
		promotions:    map[string]*domain.Promotion{},
		orders:        map[string]*domain.Order{},
		wishlists:     map[string]*domain.Wishlist{},
		wishlistItems: map[string]*domain.WishlistItem{},
		profiles:      map[string]*domain.Profile{},
	}
}

func (s *Store) Products() store.ProductRepository             { return productRepo{s} }
func (s *Store) Categories() store.CategoryRepository          { return categoryRepo{s} }
func (s *Store) Carts() store.CartRepository                   { return cartRepo{s} }
func (s *Store) AppliedCoupons() store.AppliedCouponRepository { return couponRepo{s} }
func (s *Store) Promotions() store.PromotionRepository         { return promotionRepo{s} }
func (s *Store) Orders() store.OrderRepository                 { return orderRepo{s} }
func (s *Store) Wishlists() store.WishlistRepository           { return wishlistRepo{s} }
func (s *Store) Profiles() store.ProfileRepository             { return profileRepo{s} }

// PutProfile seeds a profile. Profiles are owned by the identity provider,
// so the repository itself is read-only.
func (s *Store) PutProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = &p
}

// now returns strictly increasing timestamps so that insertion order is
// preserved by time-based sorts. Callers hold the write lock.
func (s *Store) now() time.Time {
	t := s.clock()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func newID() string { return uuid.New().String() }

// products

type productRepo struct{ s *Store }

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Images = append([]string(nil), p.Images...)
	c.Variants = append([]domain.Variant(nil), p.Variants...)
	return &c
}

func (r productRepo) Get(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r productRepo) List(_ context.Context, f store.ProductFilter, page store.Page) ([]domain.Product, int, error) {
	r.s.mu.RLock()
	var matched []domain.Product
	for _, p := range r.s.products {
		if matchProduct(p, f) {
			matched = append(matched, *copyProduct(p))
		}
	}
	r.s.mu.RUnlock()

	less := func(a, b domain.Product) bool {
		switch f.Sort {
		case store.SortPrice:
			return a.Price.LessThan(b.Price)
		case store.SortName:
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if f.Ascending {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := len(matched)
	return paginate(matched, page), total, nil
}

func matchProduct(p *domain.Product, f store.ProductFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.ExcludeID != "" && p.ID == f.ExcludeID {
		return false
	}
	if f.CategoryID != "" && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

func paginate[T any](rows []T, page store.Page) []T {
	if page.Limit <= 0 {
		return rows
	}
	start := page.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if p.SKU != "" && existing.SKU == p.SKU {
			return store.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	for i := range p.Variants {
		if p.Variants[i].ID == "" {
			p.Variants[i].ID = newID()
		}
		p.Variants[i].ProductID = p.ID
	}
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r productRepo) Update(_ context.Context, p *domain.Product, replaceVariants bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.products[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, other := range r.s.products {
		if id != p.ID && p.SKU != "" && other.SKU == p.SKU {
			return store.ErrDuplicate
		}
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.s.now()
	if replaceVariants {
		for i := range p.Variants {
			p.Variants[i].ID = newID()
			p.Variants[i].ProductID = p.ID
		}
	} else {
		p.Variants = existing.Variants
	}
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r productRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r productRepo) IncrementStock(_ context.Context, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += delta
	return nil
}

func (r productRepo) CountByCategory(_ context.Context, categoryID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.products {
		if (p.CategoryID != nil && *p.CategoryID == categoryID) ||
			(p.SubcategoryID != nil && *p.SubcategoryID == categoryID) {
			n++
		}
	}
	return n, nil
}

// categories

type categoryRepo struct{ s *Store }

func (r categoryRepo) Get(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r categoryRepo) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	return r.filter(func(c *domain.Category) bool { return !activeOnly || c.IsActive }), nil
}

func (r categoryRepo) Children(_ context.Context, parentID string) ([]domain.Category, error) {
	return r.filter(func(c *domain.Category) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (r categoryRepo) filter(keep func(*domain.Category) bool) []domain.Category {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Category{}
	for _, c := range r.s.categories {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r categoryRepo) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.Slug == c.Slug {
			return store.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	cp.Subcategories, cp.Products = nil, nil
	r.s.categories[c.ID] = &cp
	return nil
}

func (r categoryRepo) Update(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.categories[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, other := range r.s.categories {
		if id != c.ID && other.Slug == c.Slug {
			return store.ErrDuplicate
		}
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.s.now()
	cp := *c
	cp.Subcategories, cp.Products = nil, nil
	r.s.categories[c.ID] = &cp
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

// carts

type cartRepo struct{ s *Store }

func (r cartRepo) FindByOwner(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.carts {
		if c.Owner() == owner {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r cartRepo) Create(_ context.Context, c *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner := c.Owner()
	for _, existing := range r.s.carts {
		if existing.Owner() == owner {
			return store.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	cp.Items, cp.Coupons = nil, nil
	r.s.carts[c.ID] = &cp
	return nil
}

func (r cartRepo) UpdateTotals(_ context.Context, cartID string, totals domain.Totals) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return store.ErrNotFound
	}
	c.Totals = totals
	c.UpdatedAt = r.s.now()
	return nil
}

func (r cartRepo) ListItems(_ context.Context, cartID string) ([]domain.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.LineItem{}
	for _, it := range r.s.items {
		if it.CartID == cartID {
			out = append(out, r.withProduct(*it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// withProduct attaches product and variant details. Callers hold the lock.
func (r cartRepo) withProduct(it domain.LineItem) domain.LineItem {
	if p, ok := r.s.products[it.ProductID]; ok {
		it.Product = p.Summary()
		if it.VariantID != nil {
			for _, v := range p.Variants {
				if v.ID == *it.VariantID {
					v := v
					it.Variant = &v
				}
			}
		}
	}
	return it
}

func (r cartRepo) GetItem(_ context.Context, cartID, itemID string) (*domain.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.items[itemID]
	if !ok || it.CartID != cartID {
		return nil, store.ErrNotFound
	}
	cp := r.withProduct(*it)
	return &cp, nil
}

func (r cartRepo) FindItem(_ context.Context, cartID, productID string, variantID *string) (*domain.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, it := range r.s.items {
		if it.CartID == cartID && it.ProductID == productID && domain.SameVariant(it.VariantID, variantID) {
			cp := *it
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r cartRepo) AddItem(_ context.Context, item *domain.LineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[item.CartID]; !ok {
		return store.ErrNotFound
	}
	if item.ID == "" {
		item.ID = newID()
	}
	item.CreatedAt = r.s.now()
	cp := *item
	cp.Product, cp.Variant = nil, nil
	r.s.items[item.ID] = &cp
	return nil
}

func (r cartRepo) UpdateItem(_ context.Context, item *domain.LineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.items[item.ID]
	if !ok || existing.CartID != item.CartID {
		return store.ErrNotFound
	}
	existing.Quantity = item.Quantity
	existing.SavedForLater = item.SavedForLater
	return nil
}

func (r cartRepo) DeleteItem(_ context.Context, cartID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[itemID]
	if !ok || it.CartID != cartID {
		return store.ErrNotFound
	}
	delete(r.s.items, itemID)
	return nil
}

func (r cartRepo) ClearItems(_ context.Context, cartID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.items {
		if it.CartID == cartID {
			delete(r.s.items, id)
		}
	}
	return nil
}

// applied coupons

type couponRepo struct{ s *Store }

func (r couponRepo) List(_ context.Context, cartID string) ([]domain.AppliedCoupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.AppliedCoupon{}
	for _, c := range r.s.coupons {
		if c.CartID == cartID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r couponRepo) Get(_ context.Context, cartID, id string) (*domain.AppliedCoupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.coupons[id]
	if !ok || c.CartID != cartID {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r couponRepo) Create(_ context.Context, c *domain.AppliedCoupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.coupons {
		if existing.CartID == c.CartID && existing.PromotionID == c.PromotionID {
			return store.ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = r.s.now()
	cp := *c
	r.s.coupons[c.ID] = &cp
	return nil
}

func (r couponRepo) Delete(_ context.Context, cartID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok || c.CartID != cartID {
		return store.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r couponRepo) DeleteAll(_ context.Context, cartID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.coupons {
		if c.CartID == cartID {
			delete(r.s.coupons, id)
		}
	}
	return nil
}

func (r couponRepo) CountByPromotion(_ context.Context, promotionID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.coupons {
		if c.PromotionID == promotionID {
			n++
		}
	}
	return n, nil
}

// promotions

type promotionRepo struct{ s *Store }

func (r promotionRepo) Get(_ context.Context, id string) (*domain.Promotion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r promotionRepo) GetByCode(_ context.Context, code string) (*domain.Promotion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.promotions {
		if p.Code != nil && *p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r promotionRepo) List(_ context.Context, liveAt *time.Time, page store.Page) ([]domain.Promotion, int, error) {
	r.s.mu.RLock()
	out := []domain.Promotion{}
	for _, p := range r.s.promotions {
		if liveAt == nil || p.Live(*liveAt) {
			out = append(out, *p)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), len(out), nil
}

func (r promotionRepo) codeTaken(code *string, exceptID string) bool {
	if code == nil {
		return false
	}
	for id, p := range r.s.promotions {
		if id != exceptID && p.Code != nil && *p.Code == *code {
			return true
		}
	}
	return false
}

func (r promotionRepo) Create(_ context.Context, p *domain.Promotion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.codeTaken(p.Code, "") {
		return store.ErrDuplicate
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.promotions[p.ID] = &cp
	return nil
}

func (r promotionRepo) Update(_ context.Context, p *domain.Promotion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.promotions[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.codeTaken(p.Code, p.ID) {
		return store.ErrDuplicate
	}
	p.CreatedAt = existing.CreatedAt
	p.UsageCount = existing.UsageCount
	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.promotions[p.ID] = &cp
	return nil
}

func (r promotionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.promotions[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.promotions, id)
	return nil
}

func (r promotionRepo) IncrementUsage(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promotions[id]
	if !ok {
		return store.ErrNotFound
	}
	p.UsageCount++
	return nil
}

// orders

type orderRepo struct{ s *Store }

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	c.Addresses = append([]domain.Address(nil), o.Addresses...)
	c.StatusHistory = append([]domain.StatusEntry(nil), o.StatusHistory...)
	return &c
}

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return store.ErrDuplicate
		}
	}
	if o.ID == "" {
		o.ID = newID()
	}
	now := r.s.now()
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		o.Items[i].ID = newID()
		o.Items[i].OrderID = o.ID
	}
	for i := range o.Addresses {
		o.Addresses[i].ID = newID()
		o.Addresses[i].OrderID = o.ID
	}
	for i := range o.StatusHistory {
		o.StatusHistory[i].ID = newID()
		o.StatusHistory[i].OrderID = o.ID
		o.StatusHistory[i].CreatedAt = now
	}
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r orderRepo) Get(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r orderRepo) ListByUser(_ context.Context, userID string, page store.Page) ([]domain.Order, int, error) {
	r.s.mu.RLock()
	out := []domain.Order{}
	for _, o := range r.s.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), len(out), nil
}

func (r orderRepo) SetStatus(_ context.Context, id string, entry domain.StatusEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	now := r.s.now()
	entry.ID = newID()
	entry.OrderID = id
	entry.CreatedAt = now
	o.Status = entry.Status
	o.UpdatedAt = now
	o.StatusHistory = append(o.StatusHistory, entry)
	return nil
}

func (r orderRepo) LatestNumber(_ context.Context, prefix string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	latest := ""
	for _, o := range r.s.orders {
		if strings.HasPrefix(o.OrderNumber, prefix) && o.OrderNumber > latest {
			latest = o.OrderNumber
		}
	}
	return latest, nil
}

// wishlists

type wishlistRepo struct{ s *Store }

func (r wishlistRepo) FindByUser(_ context.Context, userID string) (*domain.Wishlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.wishlists {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r wishlistRepo) Create(_ context.Context, w *domain.Wishlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.wishlists {
		if existing.UserID == w.UserID {
			return store.ErrDuplicate
		}
	}
	if w.ID == "" {
		w.ID = newID()
	}
	w.CreatedAt = r.s.now()
	cp := *w
	cp.Items = nil
	r.s.wishlists[w.ID] = &cp
	return nil
}

func (r wishlistRepo) ListItems(_ context.Context, wishlistID string) ([]domain.WishlistItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.WishlistItem{}
	for _, it := range r.s.wishlistItems {
		if it.WishlistID != wishlistID {
			continue
		}
		p, ok := r.s.products[it.ProductID]
		if !ok || p.Status != domain.ProductActive {
			continue
		}
		cp := *it
		cp.Product = p.Summary()
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (r wishlistRepo) FindItem(_ context.Context, wishlistID, productID string) (*domain.WishlistItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, it := range r.s.wishlistItems {
		if it.WishlistID == wishlistID && it.ProductID == productID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r wishlistRepo) AddItem(_ context.Context, item *domain.WishlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.wishlistItems {
		if existing.WishlistID == item.WishlistID && existing.ProductID == item.ProductID {
			return store.ErrDuplicate
		}
	}
	if item.ID == "" {
		item.ID = newID()
	}
	item.AddedAt = r.s.now()
	cp := *item
	cp.Product = nil
	r.s.wishlistItems[item.ID] = &cp
	return nil
}

func (r wishlistRepo) DeleteItem(_ context.Context, wishlistID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.wishlistItems[itemID]
	if !ok || it.WishlistID != wishlistID {
		return store.ErrNotFound
	}
	delete(r.s.wishlistItems, itemID)
	return nil
}

func (r wishlistRepo) Clear(_ context.Context, wishlistID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.wishlistItems {
		if it.WishlistID == wishlistID {
			delete(r.s.wishlistItems, id)
		}
	}
	return nil
}

// profiles

type profileRepo struct{ s *Store }

func (r profileRepo) Get(_ context.Context, userID string) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}
