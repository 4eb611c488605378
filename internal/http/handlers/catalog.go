package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/http/response"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/services"
)

type CatalogHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewCatalogHandler(log *logger.Logger, catalog services.CatalogService) *CatalogHandler {
	return &CatalogHandler{log: log.With("handler", "CatalogHandler"), catalog: catalog}
}

// GET /catalog/items
func (h *CatalogHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context())
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /catalog/items/:id
func (h *CatalogHandler) GetItem(c *gin.Context) {
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// respondUpstream passes a backend 404 through and reports anything else as
// a bad gateway.
func respondUpstream(c *gin.Context, err error) {
	if transport.StatusCode(err) == http.StatusNotFound {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	response.RespondError(c, http.StatusBadGateway, "upstream_error", err)
}
