package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/cart"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
)

type addItemRequest struct {
	cart.AddItemInput
	SessionID string `json:"sessionId"`
}

type updateItemRequest struct {
	cart.ItemPatch
	ItemID    string `json:"itemId"`
	SessionID string `json:"sessionId"`
}

func (h *handlers) getCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r, "", identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Carts.View(r.Context(), o)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	msg := "Cart retrieved successfully"
	if len(c.Items) == 0 {
		msg = "Cart is empty"
	}
	h.ok(w, http.StatusOK, msg, c)
}

func (h *handlers) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := owner(r, req.SessionID, identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Carts.AddItem(r.Context(), o, req.AddItemInput)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Item added to cart successfully", c)
}

func (h *handlers) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		h.fail(w, http.StatusBadRequest, "validation failed", "itemId is required")
		return
	}
	o, err := owner(r, req.SessionID, identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Carts.UpdateItem(r.Context(), o, req.ItemID, req.ItemPatch)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Cart updated successfully", c)
}

func (h *handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r, "", identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Carts.RemoveItem(r.Context(), o, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Item removed from cart successfully", c)
}

func (h *handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r, "", identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Carts.Clear(r.Context(), o)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Cart cleared successfully", c)
}
