// Package http holds the gin surfaces of the four services. Validation
// errors are resolved here and never enter the event flow.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodesandbox/event-bus-sample/internal/adapter/http/middleware"
	"github.com/nodesandbox/event-bus-sample/internal/logging"
)

// newEngine builds a gin engine with the ambient middleware every service
// shares: recovery, metrics, request logging, /healthz and /metrics.
func newEngine(service string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(service))
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// NewOrderRouter serves the order saga controller's API.
func NewOrderRouter(h *OrderHandler) *gin.Engine {
	r := newEngine("order-service")
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:orderId", h.GetOrderByID)
	return r
}

// NewInventoryRouter serves the inventory ledger's API.
func NewInventoryRouter(h *InventoryHandler) *gin.Engine {
	r := newEngine("inventory-service")
	r.GET("/inventory", h.ListInventory)
	return r
}

// NewPaymentRouter serves the payment authorizer's API.
func NewPaymentRouter(h *PaymentHandler) *gin.Engine {
	r := newEngine("payment-service")
	r.GET("/payments/:paymentId", h.GetPaymentByID)
	return r
}

// NewNotificationRouter serves the notification sink's API.
func NewNotificationRouter(h *NotificationHandler) *gin.Engine {
	r := newEngine("notification-service")
	r.GET("/notifications", h.ListNotifications)
	return r
}
