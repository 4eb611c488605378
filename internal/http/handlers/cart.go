package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/http/response"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/services"
	"github.com/yungbote/storefront-backend/internal/types"
)

type CartHandler struct {
	log     *logger.Logger
	carts   *services.CartRegistry
	metrics *observability.Metrics
}

func NewCartHandler(log *logger.Logger, carts *services.CartRegistry, metrics *observability.Metrics) *CartHandler {
	return &CartHandler{log: log.With("handler", "CartHandler"), carts: carts, metrics: metrics}
}

func (h *CartHandler) cart(c *gin.Context) (*services.Cart, bool) {
	owner, err := ownerID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return nil, false
	}
	cart, err := h.carts.Get(c.Request.Context(), owner)
	if err != nil {
		h.log.Error("load cart failed", "owner_id", owner, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "cart_load_failed", err)
		return nil, false
	}
	return cart, true
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"cart": newCartView(cart)})
}

// POST /cart/items
// body: a line item; lineItemId may be omitted for a freshly configured item.
// Name and prices are taken from the catalog whenever it lists the item.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req types.LineItem
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.CatalogItemID) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingCatalogItem)
		return
	}
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	stored, err := cart.Add(c.Request.Context(), req)
	h.metrics.IncCartOperation("add", err)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_write_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": newLineItemView(stored), "cart": newCartView(cart)})
}

// PUT /cart/items/:lineItemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req types.LineItem
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.LineItemID = c.Param("lineItemId")
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	stored, err := cart.Update(c.Request.Context(), req)
	h.metrics.IncCartOperation("update", err)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_write_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": newLineItemView(stored), "cart": newCartView(cart)})
}

// DELETE /cart/items/:lineItemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.remove(c, services.RemoveFilter{LineItemID: c.Param("lineItemId")})
}

// DELETE /cart/items?catalogItemId=...&addOnId=...&addOnId=...
// Passing addOns= (empty) matches rows with no add-ons.
func (h *CartHandler) RemoveMatching(c *gin.Context) {
	f := services.RemoveFilter{CatalogItemID: strings.TrimSpace(c.Query("catalogItemId"))}
	if f.CatalogItemID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingCatalogItem)
		return
	}
	if ids, ok := c.GetQueryArray("addOnId"); ok {
		f.AddOnIDs = ids
	} else if _, ok := c.GetQuery("addOns"); ok {
		f.AddOnIDs = []string{}
	}
	h.remove(c, f)
}

func (h *CartHandler) remove(c *gin.Context, f services.RemoveFilter) {
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	n, err := cart.Remove(c.Request.Context(), f)
	h.metrics.IncCartOperation("remove", err)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_write_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"removed": n, "cart": newCartView(cart)})
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	err := cart.Clear(c.Request.Context())
	h.metrics.IncCartOperation("clear", err)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cart_write_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"cart": newCartView(cart)})
}

// GET /cart/items/:lineItemId/display
func (h *CartHandler) DisplayItem(c *gin.Context) {
	cart, ok := h.cart(c)
	if !ok {
		return
	}
	id := c.Param("lineItemId")
	for _, li := range cart.Items() {
		if li.LineItemID == id {
			response.RespondOK(c, gin.H{"item": newLineItemView(cart.ResolveDisplayItem(c.Request.Context(), li))})
			return
		}
	}
	response.RespondError(c, http.StatusNotFound, "not_found", errLineItemNotFound)
}
