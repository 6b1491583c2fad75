package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/order"
)

type OrderHandler struct {
	svc *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderReq struct {
	UserID string `json:"userId" binding:"required"`
	Items  []struct {
		ProductID string  `json:"productId" binding:"required"`
		Quantity  int     `json:"quantity" binding:"required,gt=0"`
		Price     float64 `json:"price"`
	} `json:"items" binding:"required,min=1,dive"`
}

type createOrderResp struct {
	OrderID string `json:"orderId"`
}

// CreateOrder handler: translate to the saga controller's input.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	items := make([]event.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = event.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // prevent duplicated requests

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	o, err := h.svc.CreateOrder(ctx, req.UserID, items, idemKey)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, order.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, order.ErrDuplicate) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, createOrderResp{OrderID: o.OrderID})
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	o, err := h.svc.GetOrder(ctx, c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}
