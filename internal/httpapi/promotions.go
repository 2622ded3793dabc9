package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/identity"
	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/promotion"
)

type applyCouponRequest struct {
	Code      string `json:"code"`
	SessionID string `json:"sessionId"`
}

func (h *handlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := owner(r, req.SessionID, identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	res, err := h.Promotions.ApplyCoupon(r.Context(), o, req.Code)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Coupon applied successfully", res)
}

func (h *handlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r, "", identity.GuestCartMessage)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	c, err := h.Promotions.RemoveCoupon(r.Context(), o, chi.URLParam(r, "couponId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Coupon removed successfully", c)
}

func (h *handlers) listPromotions(w http.ResponseWriter, r *http.Request) {
	liveOnly := r.URL.Query().Get("active") == "true"
	page, err := h.Promotions.List(r.Context(), liveOnly, pageFrom(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Promotions retrieved successfully", page)
}

func (h *handlers) getPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.Promotions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Promotion retrieved successfully", p)
}

func (h *handlers) createPromotion(w http.ResponseWriter, r *http.Request) {
	var in promotion.Input
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Promotions.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Promotion created successfully", p)
}

func (h *handlers) updatePromotion(w http.ResponseWriter, r *http.Request) {
	var in promotion.Patch
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Promotions.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Promotion updated successfully", p)
}

func (h *handlers) deletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.Promotions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Promotion deleted successfully", nil)
}
