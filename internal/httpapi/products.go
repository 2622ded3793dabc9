package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/catalog"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

const defaultPageSize = 10

func pageFrom(r *http.Request) store.Page {
	return store.NewPage(queryInt(r, "page", 1), queryInt(r, "limit", defaultPageSize), defaultPageSize)
}

func queryMoney(r *http.Request, key string) (*domain.Money, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation(key + " must be a number")
	}
	return &v, nil
}

// productFilter reads the listing query string. Unknown sort keys fall back
// to creation time.
func productFilter(r *http.Request) (store.ProductFilter, error) {
	q := r.URL.Query()
	f := store.ProductFilter{
		CategoryID: q.Get("category"),
		Search:     strings.TrimSpace(q.Get("search")),
		Status:     domain.ProductStatus(q.Get("status")),
		Sort:       store.SortCreatedAt,
		Ascending:  strings.EqualFold(q.Get("order"), "asc"),
	}
	switch s := store.ProductSort(q.Get("sort")); s {
	case store.SortPrice, store.SortName:
		f.Sort = s
	}
	if q.Get("featured") == "true" {
		featured := true
		f.Featured = &featured
	}

	var err error
	if f.MinPrice, err = queryMoney(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryMoney(r, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	page, err := h.Products.List(r.Context(), f, pageFrom(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Products retrieved successfully", page)
}

func (h *handlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	results, err := h.Products.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 0))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Search results retrieved successfully", results)
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Product retrieved successfully", p)
}

func (h *handlers) relatedProducts(w http.ResponseWriter, r *http.Request) {
	related, err := h.Products.Related(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Related products retrieved successfully", related)
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Products.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Product created successfully", p)
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductPatch
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Products.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Product updated successfully", p)
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Product deleted successfully", nil)
}
