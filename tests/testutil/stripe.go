package testutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

// SignStripePayload builds a Stripe-Signature header for payload, exactly as
// the gateway would for the given signing secret
func SignStripePayload(payload []byte, secret string, at time.Time) string {
	signature := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(signature))
}

// StripeEventPayload builds a payment_intent event body. An empty orderID
// leaves the metadata empty and failureMessage is only set when non-empty.
func StripeEventPayload(eventID, eventType, orderID, failureMessage string) []byte {
	intent := map[string]interface{}{
		"id":       "pi_" + eventID,
		"object":   "payment_intent",
		"amount":   3105,
		"currency": "usd",
		"metadata": map[string]string{},
	}
	if orderID != "" {
		intent["metadata"] = map[string]string{"orderId": orderID, "userId": "1"}
	}
	if failureMessage != "" {
		intent["last_payment_error"] = map[string]interface{}{
			"type":    "card_error",
			"code":    "card_declined",
			"message": failureMessage,
		}
	}

	event := map[string]interface{}{
		"id":      eventID,
		"object":  "event",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]interface{}{"object": intent},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return payload
}
