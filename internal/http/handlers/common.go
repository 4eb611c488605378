package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/platform/apierr"
	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/pricing"
	"github.com/yungbote/storefront-backend/internal/services"
	"github.com/yungbote/storefront-backend/internal/types"
)

var errNoUser = errors.New("no authenticated user")

func ownerID(c *gin.Context) (string, error) {
	u, ok := identity.UserFromContext(c.Request.Context())
	if !ok {
		return "", apierr.New(http.StatusUnauthorized, "unauthorized", errNoUser)
	}
	return u.ID, nil
}

type lineItemView struct {
	types.LineItem
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type cartView struct {
	Items []lineItemView `json:"items"`
	Total float64        `json:"total"`
	Count int            `json:"count"`
}

func newLineItemView(li types.LineItem) lineItemView {
	return lineItemView{LineItem: li, UnitPrice: pricing.UnitPrice(li), LineTotal: pricing.LineTotal(li)}
}

func newCartView(cart *services.Cart) cartView {
	items := cart.Items()
	out := cartView{Items: make([]lineItemView, 0, len(items)), Total: cart.Total(), Count: cart.Count()}
	for _, li := range items {
		out.Items = append(out.Items, newLineItemView(li))
	}
	return out
}

var (
	errMissingCatalogItem = errors.New("catalogItemId required")
	errLineItemNotFound   = errors.New("line item not found")
)
