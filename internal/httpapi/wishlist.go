package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/apperr"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/store"
)

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *handlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.Wishlists.Get(r.Context(), identity.PrincipalFrom(r.Context()).UserID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Wishlist retrieved successfully", list)
}

func (h *handlers) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, created, err := h.Wishlists.Add(r.Context(), identity.PrincipalFrom(r.Context()).UserID, req.ProductID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !created {
		h.ok(w, http.StatusOK, "Product already in wishlist", item)
		return
	}
	h.ok(w, http.StatusCreated, "Product added to wishlist successfully", item)
}

func (h *handlers) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Wishlists.Remove(r.Context(), identity.PrincipalFrom(r.Context()).UserID, chi.URLParam(r, "itemId")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Product removed from wishlist successfully", nil)
}

func (h *handlers) clearWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Wishlists.Clear(r.Context(), identity.PrincipalFrom(r.Context()).UserID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Wishlist cleared successfully", nil)
}

// me returns the caller's local profile.
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	p := identity.PrincipalFrom(r.Context())
	profile, err := h.Profiles.Get(r.Context(), p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		h.writeErr(w, r, apperr.NotFound("profile not found"))
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "User profile retrieved successfully", profile)
}
