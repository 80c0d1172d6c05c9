package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/pricing"
	"github.com/shopspring/decimal"
)

// SupportedCurrencies lists the currencies payment intents can be created in
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "INR", "CAD", "AUD"}

// PaymentIntentInput is a request to start collecting payment for an order
type PaymentIntentInput struct {
	Amount   decimal.Decimal // major currency units
	OrderID  string
	Currency string // empty means the platform default
	UserID   uint
}

// PaymentService starts payment authorizations. It never changes order or
// payment state; that only happens when the gateway reports back.
type PaymentService struct {
	gateway         PaymentGateway
	defaultCurrency string
	timeout         time.Duration
	log             *log.Helper
}

var paymentServiceInstance *PaymentService

// NewPaymentService creates a payment service
func NewPaymentService(gateway PaymentGateway, defaultCurrency string, timeout time.Duration, logger log.Logger) *PaymentService {
	return &PaymentService{
		gateway:         gateway,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		timeout:         timeout,
		log:             log.NewHelper(log.With(logger, "module", "services/payment")),
	}
}

// InitPaymentService creates the payment service and registers it globally
func InitPaymentService(gateway PaymentGateway, defaultCurrency string, timeout time.Duration, logger log.Logger) *PaymentService {
	paymentServiceInstance = NewPaymentService(gateway, defaultCurrency, timeout, logger)
	return paymentServiceInstance
}

// GetPaymentService returns the initialized payment service instance
func GetPaymentService() *PaymentService {
	return paymentServiceInstance
}

// SetPaymentService sets the payment service instance (primarily for testing)
func SetPaymentService(service *PaymentService) {
	paymentServiceInstance = service
}

// CreatePaymentIntent asks the gateway for an authorization and returns the
// client secret used by the payment form
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (string, error) {
	if !input.Amount.IsPositive() || strings.TrimSpace(input.OrderID) == "" {
		return "", invalidInput("Amount and orderId are required", nil)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !isSupportedCurrency(currency) {
		return "", invalidInput("Unsupported currency", map[string]interface{}{
			"currency":  currency,
			"supported": SupportedCurrencies,
		})
	}

	minor, err := pricing.ToMinorUnits(input.Amount)
	if err != nil {
		return "", invalidInput("Amount exceeds the maximum charge", map[string]interface{}{
			"maximum": pricing.MaxAmount.StringFixed(pricing.CurrencyPlaces),
		})
	}
	if minor <= 0 {
		return "", invalidInput("Amount is below the smallest currency unit", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	intent, err := s.gateway.CreatePaymentIntent(callCtx, IntentRequest{
		AmountMinor: minor,
		Currency:    currency,
		OrderID:     input.OrderID,
		UserID:      strconv.FormatUint(uint64(input.UserID), 10),
	})
	if err != nil {
		return "", s.gatewayError(callCtx, input.OrderID, err)
	}

	s.log.Infof("created payment intent %s for order %s (%d %s)", intent.ID, input.OrderID, minor, currency)
	return intent.ClientSecret, nil
}

func (s *PaymentService) gatewayError(ctx context.Context, orderID string, err error) error {
	var rejection *GatewayRejection
	switch {
	case errors.As(err, &rejection):
		s.log.Warnf("gateway rejected payment intent for order %s: %v", orderID, err)
		return &Error{Code: CodeGatewayError, Message: "Payment gateway rejected the request", Details: rejection.Message, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.log.Errorf("payment gateway timed out for order %s", orderID)
		return &Error{Code: CodeGatewayError, Message: "Payment gateway timed out", Retryable: true, Err: err}
	default:
		s.log.Errorf("payment gateway failed for order %s: %v", orderID, err)
		return &Error{Code: CodeGatewayError, Message: "Payment gateway unavailable", Retryable: true, Err: err}
	}
}

func isSupportedCurrency(currency string) bool {
	for _, supported := range SupportedCurrencies {
		if supported == currency {
			return true
		}
	}
	return false
}
