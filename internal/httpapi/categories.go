package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/catalog"
)

func (h *handlers) categoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Categories.Tree(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Categories retrieved successfully", tree)
}

func (h *handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.Categories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Category retrieved successfully", c)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Categories.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Category created successfully", c)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryPatch
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.Categories.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Category updated successfully", c)
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Category deleted successfully", nil)
}
