package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodesandbox/event-bus-sample/internal/payment"
)

type PaymentHandler struct {
	svc *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	p, err := h.svc.GetPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}
