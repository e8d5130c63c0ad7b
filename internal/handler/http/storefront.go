package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crispydelights/storefront/internal/domain"
	"github.com/crispydelights/storefront/internal/service"
	"github.com/crispydelights/storefront/pkg/httputil"
	"github.com/crispydelights/storefront/pkg/middleware"
	"github.com/crispydelights/storefront/pkg/validator"
)

// StorefrontHandler handles the menu and cart endpoints.
type StorefrontHandler struct {
	service *service.Storefront
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.Storefront, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// checkoutAccepted is returned while the order is being submitted; the
// outcome arrives as a notification.
type checkoutAccepted struct {
	Status string           `json:"status"`
	Cart   domain.CartState `json:"cart"`
}

// --- Handlers ---

// ListMenu handles GET /api/v1/menu
func (h *StorefrontHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Menu()})
}

// GetCart handles GET /api/v1/cart
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Cart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	h.respond(w, r, state, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ClearCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	h.respond(w, r, state, err)
}

// AddItem handles POST /api/v1/cart/items
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	h.respond(w, r, state, err)
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{id}
func (h *StorefrontHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.UpdateQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), id, req)
	h.respond(w, r, state, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	state, err := h.service.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), id)
	h.respond(w, r, state, err)
}

// SetOpen handles PUT /api/v1/cart/open
func (h *StorefrontHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var req service.SetOpenInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.SetOpen(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	h.respond(w, r, state, err)
}

// SetStep handles PUT /api/v1/cart/step
func (h *StorefrontHandler) SetStep(w http.ResponseWriter, r *http.Request) {
	var req service.SetStepInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.SetStep(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	h.respond(w, r, state, err)
}

// Checkout handles POST /api/v1/cart/checkout. The order is confirmed
// asynchronously; clients poll the notifications endpoint for the result.
func (h *StorefrontHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req domain.ShippingInfo
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sessionID := middleware.SessionIDFromContext(r.Context())
	if _, err := h.service.Checkout(r.Context(), sessionID, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	state, err := h.service.Cart(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: checkoutAccepted{Status: "processing", Cart: state},
	})
}

// ListNotifications handles GET /api/v1/cart/notifications
func (h *StorefrontHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.Notifications(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: notes})
}

// --- Helpers ---

func (h *StorefrontHandler) respond(w http.ResponseWriter, r *http.Request, state domain.CartState, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

func (h *StorefrontHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "item id must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}
