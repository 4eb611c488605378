package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/http/response"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/services"
	"github.com/yungbote/storefront-backend/internal/types"
)

type CheckoutHandler struct {
	log      *logger.Logger
	carts    *services.CartRegistry
	checkout *services.Checkout
	sessions *services.SessionStore
	metrics  *observability.Metrics
}

func NewCheckoutHandler(log *logger.Logger, carts *services.CartRegistry, checkout *services.Checkout, sessions *services.SessionStore, metrics *observability.Metrics) *CheckoutHandler {
	return &CheckoutHandler{
		log:      log.With("handler", "CheckoutHandler"),
		carts:    carts,
		checkout: checkout,
		sessions: sessions,
		metrics:  metrics,
	}
}

type sessionView struct {
	services.Session
	RedirectToCart bool    `json:"redirectToCart"`
	Total          float64 `json:"total"`
}

func newSessionView(s services.Session, cart *services.Cart) sessionView {
	return sessionView{
		Session:        s,
		RedirectToCart: services.ShouldRedirectToCart(s, cart),
		Total:          cart.Total(),
	}
}

// transition runs fn on the addressed session under its lock and renders the
// result. A failed transition still returns the session so clients can show
// its error text.
func (h *CheckoutHandler) transition(c *gin.Context, name string, fn func(s services.Session, cart *services.Cart) (services.Session, error)) {
	owner, err := ownerID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	cart, err := h.carts.Get(c.Request.Context(), owner)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_load_failed", err)
		return
	}
	s, err := h.sessions.Update(c.Param("id"), owner, func(s services.Session) (services.Session, error) {
		return fn(s, cart)
	})
	if errors.Is(err, services.ErrSessionNotFound) {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	h.metrics.IncCheckoutTransition(name, err)
	if err != nil {
		status, code := checkoutErrorStatus(err)
		c.JSON(status, gin.H{
			"error":   response.APIError{Message: err.Error(), Code: code},
			"session": newSessionView(s, cart),
		})
		return
	}
	response.RespondOK(c, gin.H{"session": newSessionView(s, cart)})
}

func checkoutErrorStatus(err error) (int, string) {
	var cerr *services.CheckoutError
	switch {
	case errors.As(err, &cerr):
		return http.StatusBadGateway, "checkout_failed"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, services.ErrDevSkipDisabled):
		return http.StatusForbidden, "dev_skip_disabled"
	default:
		return http.StatusInternalServerError, "checkout_error"
	}
}

// POST /checkout
func (h *CheckoutHandler) StartSession(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	cart, err := h.carts.Get(c.Request.Context(), owner)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_load_failed", err)
		return
	}
	s := h.sessions.Create(owner)
	c.JSON(http.StatusCreated, gin.H{"session": newSessionView(s, cart)})
}

// GET /checkout/:id
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	s, err := h.sessions.Get(c.Param("id"), owner)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	cart, err := h.carts.Get(c.Request.Context(), owner)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_load_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session": newSessionView(s, cart)})
}

// DELETE /checkout/:id
func (h *CheckoutHandler) AbandonSession(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	if _, err := h.sessions.Get(c.Param("id"), owner); err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	h.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// POST /checkout/:id/submit
// body: { "specialInstructions": "..." }
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req struct {
		SpecialInstructions string `json:"specialInstructions"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	h.transition(c, "submit", func(s services.Session, cart *services.Cart) (services.Session, error) {
		return h.checkout.Submit(c.Request.Context(), s, cart, req.SpecialInstructions)
	})
}

// POST /checkout/:id/back
func (h *CheckoutHandler) Back(c *gin.Context) {
	h.transition(c, "back", func(s services.Session, _ *services.Cart) (services.Session, error) {
		return h.checkout.Back(s)
	})
}

// POST /checkout/:id/payment
// body: { "success": true, "outcome": {...} } or { "success": false, "error": "..." }
func (h *CheckoutHandler) PaymentResult(c *gin.Context) {
	var req struct {
		Success bool                 `json:"success"`
		Outcome types.PaymentOutcome `json:"outcome"`
		Error   string               `json:"error"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.transition(c, "payment", func(s services.Session, cart *services.Cart) (services.Session, error) {
		if !req.Success {
			return h.checkout.PaymentFailed(s, req.Error)
		}
		next, _, err := h.checkout.PaymentSucceeded(c.Request.Context(), s, cart, req.Outcome)
		return next, err
	})
}

// POST /checkout/:id/dev-skip
func (h *CheckoutHandler) DevSkip(c *gin.Context) {
	h.transition(c, "dev_skip", func(s services.Session, cart *services.Cart) (services.Session, error) {
		return h.checkout.DevSkip(c.Request.Context(), s, cart)
	})
}
