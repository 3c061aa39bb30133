package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	PaymentApp "github.com/dog52841/Rentify-sub001/internal/app/handlers/payment"
	domainpayment "github.com/dog52841/Rentify-sub001/internal/domain/payment"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

type PaymentHandler struct {
	Commands commands.Bus
}

type initiatePaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h PaymentHandler) Initiate(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		writeError(c, faults.Authorizationf("payment: actor identity is required"))
		return
	}
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, faults.Validationf("payment: %v", err))
		return
	}
	cmd := PaymentApp.InitiatePaymentCommand{
		CommandID:       generateCommandID(),
		BookingID:       c.Param("id"),
		ActorID:         actor,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[PaymentApp.InitiatePaymentCommand, *PaymentApp.InitiatePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PaymentHandler) Capture(c *gin.Context) {
	cmd := PaymentApp.CaptureOrderCommand{
		OrderID:         c.Param("orderId"),
		ActorID:         actorID(c),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[PaymentApp.CaptureOrderCommand, *PaymentApp.CaptureOrderResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Status == string(domainpayment.StatusFailed) {
		c.JSON(http.StatusPaymentRequired, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
