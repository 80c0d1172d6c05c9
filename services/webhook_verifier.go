package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const defaultFailureReason = "Payment failed"

// PaymentEvent is a verified gateway notification. It is one of
// PaymentSucceeded, PaymentFailed or UnrecognizedEvent.
type PaymentEvent interface {
	EventID() string
	isPaymentEvent()
}

// PaymentSucceeded reports a captured payment intent
type PaymentSucceeded struct {
	ID              string
	PaymentIntentID string
	OrderID         string // empty when the intent carried no order metadata
}

// PaymentFailed reports a failed payment attempt
type PaymentFailed struct {
	ID              string
	PaymentIntentID string
	OrderID         string
	FailureReason   string
}

// UnrecognizedEvent is any other event kind; it is acknowledged and ignored
type UnrecognizedEvent struct {
	ID   string
	Type string
}

func (e PaymentSucceeded) EventID() string  { return e.ID }
func (e PaymentFailed) EventID() string     { return e.ID }
func (e UnrecognizedEvent) EventID() string { return e.ID }

func (PaymentSucceeded) isPaymentEvent()  {}
func (PaymentFailed) isPaymentEvent()     {}
func (UnrecognizedEvent) isPaymentEvent() {}

// ErrInvalidSignature is returned when a payload does not match its signature
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrInvalidPayload is returned when a verified payload cannot be decoded
var ErrInvalidPayload = errors.New("invalid webhook payload")

// WebhookVerifier authenticates a raw webhook body and decodes it
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (PaymentEvent, error)
}

// StripeWebhookVerifier checks Stripe-Signature headers against the
// endpoint's signing secret
type StripeWebhookVerifier struct {
	secret string
}

// NewStripeWebhookVerifier creates a verifier for the given signing secret
func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: secret}
}

// Verify checks the signature over the exact bytes received, then decodes the event
func (v *StripeWebhookVerifier) Verify(payload []byte, signature string) (PaymentEvent, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (PaymentEvent, error) {
	eventType := string(event.Type)
	if eventType != "payment_intent.succeeded" && eventType != "payment_intent.payment_failed" {
		return UnrecognizedEvent{ID: event.ID, Type: eventType}, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: %s event without data", ErrInvalidPayload, eventType)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	orderID := intent.Metadata["orderId"]

	if eventType == "payment_intent.succeeded" {
		return PaymentSucceeded{ID: event.ID, PaymentIntentID: intent.ID, OrderID: orderID}, nil
	}

	reason := defaultFailureReason
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	return PaymentFailed{ID: event.ID, PaymentIntentID: intent.ID, OrderID: orderID, FailureReason: reason}, nil
}
