package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodesandbox/event-bus-sample/internal/inventory"
)

type InventoryHandler struct {
	svc *inventory.Service
}

func NewInventoryHandler(svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) ListInventory(c *gin.Context) {
	products, err := h.svc.ListInventory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}
