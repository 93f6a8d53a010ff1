package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mcpchat/internal/domain/model"
)

// ModelHandler serves the static provider/model catalog.
type ModelHandler struct {
	catalog *model.Catalog
}

// NewModelHandler builds the handler.
func NewModelHandler(catalog *model.Catalog) *ModelHandler {
	return &ModelHandler{catalog: catalog}
}

// List handles GET /v1/models.
func (h *ModelHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.catalog.Providers()})
}
