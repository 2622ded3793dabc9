// Package httpapi exposes the storefront services over a JSON REST API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cart"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/catalog"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/order"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/promotion"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/telemetry"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/wishlist"
)

// Deps are the collaborators the API serves. Metrics may be nil.
type Deps struct {
	Products       *catalog.ProductService
	Categories     *catalog.CategoryService
	Carts          *cart.Service
	Promotions     *promotion.Service
	Orders         *order.Service
	Wishlists      *wishlist.Service
	Profiles       store.ProfileRepository
	Auth           Authenticator
	Metrics        http.Handler
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type handlers struct {
	Deps
	logger *slog.Logger
	auth   Authenticator
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	h := &handlers{Deps: d, logger: d.Logger, auth: d.Auth}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(telemetry.RouteTag)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.fail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.fail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	admin := h.authorize(domain.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(h.requireAuth).Get("/me", h.me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/search", h.searchProducts)
			r.Get("/{id}", h.getProduct)
			r.Get("/{id}/related", h.relatedProducts)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth, admin)
				r.Post("/", h.createProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.categoryTree)
			r.Get("/{id}", h.getCategory)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth, admin)
				r.Post("/", h.createCategory)
				r.Put("/{id}", h.updateCategory)
				r.Delete("/{id}", h.deleteCategory)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(h.optionalAuth)
			r.Get("/", h.getCart)
			r.Post("/", h.addToCart)
			r.Delete("/", h.clearCart)
			r.Put("/items", h.updateCartItem)
			r.Delete("/items/{itemId}", h.removeCartItem)
		})

		r.Route("/promotions", func(r chi.Router) {
			r.With(h.optionalAuth).Post("/apply", h.applyCoupon)
			r.With(h.optionalAuth).Delete("/coupons/{couponId}", h.removeCoupon)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth, admin)
				r.Get("/", h.listPromotions)
				r.Post("/", h.createPromotion)
				r.Get("/{id}", h.getPromotion)
				r.Put("/{id}", h.updatePromotion)
				r.Delete("/{id}", h.deletePromotion)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(h.optionalAuth).Post("/", h.createOrder)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Get("/", h.listOrders)
				r.Get("/{id}", h.getOrder)
				r.Post("/{id}/cancel", h.cancelOrder)
				r.With(admin).Put("/{id}/status", h.updateOrderStatus)
			})
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/", h.getWishlist)
			r.Post("/", h.addToWishlist)
			r.Delete("/", h.clearWishlist)
			r.Delete("/items/{itemId}", h.removeWishlistItem)
		})
	})

	return r
}

func (h *handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
