package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// IntentRequest is a payment authorization request in minor currency units
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	OrderID     string
	UserID      string
}

// Intent is the gateway's pending authorization
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway creates payment intents with the external provider
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// GatewayRejection is returned when the provider refused the request
type GatewayRejection struct {
	Code    string
	Message string
}

func (e *GatewayRejection) Error() string {
	return fmt.Sprintf("gateway rejected request: %s (%s)", e.Message, e.Code)
}

// StripeGateway creates payment intents through the Stripe API
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway creates a gateway using the given secret key
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{client: client.New(secretKey, nil)}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.AddMetadata("orderId", req.OrderID)
	params.AddMetadata("userId", req.UserID)

	intent, err := g.client.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 {
			return nil, &GatewayRejection{Code: string(stripeErr.Code), Message: stripeErr.Msg}
		}
		return nil, err
	}

	return &Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
