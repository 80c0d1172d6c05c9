package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/foodcourt-api/services"
	"github.com/shopspring/decimal"
)

const maxWebhookBodyBytes = 64 << 10

// CreatePaymentIntentRequest represents the request body for starting a payment
type CreatePaymentIntentRequest struct {
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	OrderID  string           `json:"orderId" binding:"required"`
	Currency string           `json:"currency"`
}

// CreatePaymentIntent handles POST /api/v1/payments/create-intent
func CreatePaymentIntent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "Amount and orderId are required", err)
		return
	}

	clientSecret, err := services.GetPaymentService().CreatePaymentIntent(c.Request.Context(), services.PaymentIntentInput{
		Amount:   *req.Amount,
		OrderID:  req.OrderID,
		Currency: req.Currency,
		UserID:   actor.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

// HandlePaymentWebhook handles POST /api/v1/payments/webhook. The caller is
// the payment gateway, authenticated only by the signature over the raw body.
func HandlePaymentWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		webhookError(c, http.StatusBadRequest, services.CodeInvalidInput, "Invalid payload")
		return
	}

	_, err = services.GetPaymentReconciler().HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		switch code := services.ErrorCode(err); code {
		case services.CodeMissingSignature:
			webhookError(c, http.StatusBadRequest, code, "No signature")
		case services.CodeInvalidSignature:
			webhookError(c, http.StatusBadRequest, code, "Invalid signature")
		case services.CodeInvalidInput:
			webhookError(c, http.StatusBadRequest, code, "Invalid payload")
		default:
			webhookError(c, http.StatusInternalServerError, services.CodeInternalError, "Webhook handler failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func webhookError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
