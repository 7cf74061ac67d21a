package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/page"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// CatalogHandler serves the public disc catalog through the TTL cache.
type CatalogHandler struct {
	catalog *page.Catalog
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog *page.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Discs lists the catalog, or the matches for ?q when present.
func (h *CatalogHandler) Discs(c *gin.Context) {
	discs, err := h.catalog.Discs(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrOffline.WithInternal(err))
		return
	}

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		discs = page.Search(discs, query)
	}
	if discs == nil {
		discs = []page.Disc{}
	}
	response.Success(c, http.StatusOK, discs)
}

// Categories lists the distinct disc categories.
func (h *CatalogHandler) Categories(c *gin.Context) {
	discs, err := h.catalog.Discs(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrOffline.WithInternal(err))
		return
	}
	categories := page.Categories(discs)
	if categories == nil {
		categories = []string{}
	}
	response.Success(c, http.StatusOK, categories)
}
