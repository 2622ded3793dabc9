package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/order"
)

type createOrderRequest struct {
	order.CreateInput
	SessionID string `json:"sessionId"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Note   string             `json:"note"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := owner(r, req.SessionID, identity.GuestCheckoutMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	created, err := h.Orders.Create(r.Context(), o, identity.PrincipalFrom(r.Context()), req.CreateInput)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Order created successfully", created)
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	p := identity.PrincipalFrom(r.Context())
	page, err := h.Orders.ListForUser(r.Context(), p.UserID, pageFrom(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Orders retrieved successfully", page)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"), identity.PrincipalFrom(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Order retrieved successfully", o)
}

func (h *handlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Order status updated successfully", o)
}

func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.Orders.Cancel(r.Context(), chi.URLParam(r, "id"), identity.PrincipalFrom(r.Context()), req.Reason)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Order cancelled successfully", o)
}
