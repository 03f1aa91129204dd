// Package api exposes the capture controller to the dashboard frontend
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/susatyo441/shop-vision/internal/camera"
	"github.com/susatyo441/shop-vision/internal/cart"
	"github.com/susatyo441/shop-vision/internal/session"
)

// Controller is the slice of the capture controller the API needs.
type Controller interface {
	Press(ctx context.Context) error
	Release(ctx context.Context) error
	AddMore(ctx context.Context) error
	HardReset(ctx context.Context) error
	Checkout(ctx context.Context) error
	Status() session.Status
}

type Handler struct {
	controller Controller
	cart       *cart.AccumulatedCart
	camera     *camera.Manager
	timeout    time.Duration
}

func NewHandler(controller Controller, accumulated *cart.AccumulatedCart, cameraMgr *camera.Manager, timeout time.Duration) *Handler {
	return &Handler{
		controller: controller,
		cart:       accumulated,
		camera:     cameraMgr,
		timeout:    timeout,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/capture", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/press", h.Press)
		r.Post("/release", h.Release)
		r.Post("/more", h.AddMore)
		r.Post("/reset", h.HardReset)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Patch("/items/{key}", h.UpdateQuantity)
		r.Post("/items/{key}/increment", h.IncrementItem)
		r.Post("/items/{key}/decrement", h.DecrementItem)
		r.Delete("/items/{key}", h.RemoveItem)
	})

	r.Post("/checkout", h.Checkout)

	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.GetDevices)
		r.Put("/selected", h.SelectDevice)
	})

	return r
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) Press(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.controller.Press(ctx); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.controller.Release(ctx); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) AddMore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.controller.AddMore(ctx); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) HardReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.controller.HardReset(ctx); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total float64            `json:"total"`
}

type CartItemResponse struct {
	Key         string  `json:"_id"`
	ProductID   string  `json:"productID"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	VariantName *string `json:"variantName"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	items := h.cart.Items()
	resp := CartResponse{
		Items: make([]CartItemResponse, len(items)),
		Total: h.cart.Total(),
	}
	for i, item := range items {
		resp.Items[i] = CartItemResponse{
			Key:         item.Key,
			ProductID:   item.ProductID,
			Name:        item.Name,
			Price:       item.Price,
			Stock:       item.Stock,
			VariantName: item.VariantName,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "invalid_key", "missing line item key")
		return
	}

	var req UpdateQuantityRequestDTO
	if errDecode := json.NewDecoder(r.Body).Decode(&req); errDecode != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not be negative")
		return
	}

	if errSet := h.cart.SetQuantity(key, req.Quantity); errSet != nil {
		handleControlError(w, r, errSet)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.cart.Increment)
}

func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.cart.Decrement)
}

func (h *Handler) adjustItem(w http.ResponseWriter, r *http.Request, adjust func(key string) error) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "invalid_key", "missing line item key")
		return
	}

	if errAdjust := adjust(key); errAdjust != nil {
		handleControlError(w, r, errAdjust)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "invalid_key", "missing line item key")
		return
	}

	if errRemove := h.cart.Remove(key); errRemove != nil {
		handleControlError(w, r, errRemove)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.controller.Checkout(ctx); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handler) GetDevices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices":  h.camera.Devices(),
		"selected": h.camera.Selected(),
	})
}

type SelectDeviceRequestDTO struct {
	DeviceID string `json:"deviceId"`
}

func (h *Handler) SelectDevice(w http.ResponseWriter, r *http.Request) {
	var req SelectDeviceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.camera.Select(req.DeviceID); err != nil {
		handleControlError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"selected": req.DeviceID})
}

// handleControlError maps domain errors to HTTP statuses.
func handleControlError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, cart.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, camera.ErrNoCamera):
		respondError(w, http.StatusServiceUnavailable, "no_camera", err.Error())
	case errors.Is(err, camera.ErrSessionActive), errors.Is(err, session.ErrSessionActive):
		respondError(w, http.StatusConflict, "session_active", err.Error())
	case errors.Is(err, session.ErrProcessing):
		respondError(w, http.StatusConflict, "processing", err.Error())
	default:
		slog.Error("request failed", "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
