package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/models"
	"github.com/kendall-kelly/foodcourt-api/repositories"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// PaymentReconciler applies signed gateway notifications to orders and
// payments. Every outcome is a "set to" operation, so redelivered events
// leave the stored state unchanged.
type PaymentReconciler struct {
	orders   *repositories.OrderRepository
	verifier WebhookVerifier
	archive  PayloadArchive
	events   EventPublisher
	timeout  time.Duration
	log      *log.Helper
	now      func() time.Time
}

var paymentReconcilerInstance *PaymentReconciler

// NewPaymentReconciler creates a reconciler on top of db
func NewPaymentReconciler(db *gorm.DB, verifier WebhookVerifier, archive PayloadArchive, events EventPublisher, timeout time.Duration, logger log.Logger) *PaymentReconciler {
	if archive == nil {
		archive = NoopArchive{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &PaymentReconciler{
		orders:   repositories.NewOrderRepository(db, logger),
		verifier: verifier,
		archive:  archive,
		events:   events,
		timeout:  timeout,
		log:      log.NewHelper(log.With(logger, "module", "services/reconciler")),
		now:      time.Now,
	}
}

// InitPaymentReconciler creates the reconciler and registers it globally
func InitPaymentReconciler(db *gorm.DB, verifier WebhookVerifier, archive PayloadArchive, events EventPublisher, timeout time.Duration, logger log.Logger) *PaymentReconciler {
	paymentReconcilerInstance = NewPaymentReconciler(db, verifier, archive, events, timeout, logger)
	return paymentReconcilerInstance
}

// GetPaymentReconciler returns the initialized reconciler instance
func GetPaymentReconciler() *PaymentReconciler {
	return paymentReconcilerInstance
}

// SetPaymentReconciler sets the reconciler instance (primarily for testing)
func SetPaymentReconciler(reconciler *PaymentReconciler) {
	paymentReconcilerInstance = reconciler
}

// HandleWebhook verifies the raw body against its signature and applies the
// event. Nothing is read from the payload before the signature checks out.
func (r *PaymentReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (PaymentEvent, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, newError(CodeMissingSignature, "No signature")
	}

	event, err := r.verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			r.log.Warnf("webhook signature verification failed: %v", err)
			return nil, newError(CodeInvalidSignature, "Invalid signature")
		}
		r.log.Warnf("webhook payload rejected: %v", err)
		return nil, newError(CodeInvalidInput, "Invalid payload")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.store(ctx, event, payload)

	switch e := event.(type) {
	case PaymentSucceeded:
		err = r.apply(ctx, e.ID, repositories.PaymentOutcome{
			OrderID: e.OrderID,
			Status:  models.PaymentStatusCompleted,
		})
	case PaymentFailed:
		err = r.apply(ctx, e.ID, repositories.PaymentOutcome{
			OrderID:       e.OrderID,
			Status:        models.PaymentStatusFailed,
			FailureReason: e.FailureReason,
		})
	case UnrecognizedEvent:
		r.log.Infof("unhandled webhook event type %s (%s)", e.Type, e.ID)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *PaymentReconciler) apply(ctx context.Context, eventID string, outcome repositories.PaymentOutcome) error {
	if outcome.OrderID == "" {
		r.log.Infof("webhook event %s carries no order id, ignoring", eventID)
		return nil
	}
	outcome.At = r.now()

	changed, err := r.orders.ApplyPaymentOutcome(ctx, outcome)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			// Acknowledge; a retry would never find it either
			r.log.Warnf("webhook event %s references unknown order %s", eventID, outcome.OrderID)
			return nil
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			r.log.Errorf("webhook event %s timed out for order %s", eventID, outcome.OrderID)
			return &Error{Code: CodeInternalError, Message: "Webhook handler failed", Retryable: true, Err: err}
		}
		r.log.Errorf("webhook event %s failed for order %s: %v", eventID, outcome.OrderID, err)
		return internalError("Webhook handler failed", err)
	}

	if !changed {
		r.log.Infof("webhook event %s: payment for order %s already %s", eventID, outcome.OrderID, outcome.Status)
		return nil
	}

	r.log.Infof("webhook event %s: payment for order %s is now %s", eventID, outcome.OrderID, outcome.Status)
	eventType := EventPaymentCompleted
	if outcome.Status == models.PaymentStatusFailed {
		eventType = EventPaymentFailed
	}
	if err := r.events.Publish(ctx, OrderEvent{
		Type:          eventType,
		OrderID:       outcome.OrderID,
		PaymentStatus: outcome.Status,
		Message:       outcome.FailureReason,
		OccurredAt:    outcome.At,
	}); err != nil {
		r.log.Warnf("failed to publish %s for order %s: %v", eventType, outcome.OrderID, err)
	}
	return nil
}

// store archives the verified body; failures never block reconciliation
func (r *PaymentReconciler) store(ctx context.Context, event PaymentEvent, payload []byte) {
	id := event.EventID()
	if id == "" {
		id = "unidentified-" + ulid.Make().String()
	}
	if err := r.archive.Store(ctx, webhookArchiveKey(id), payload); err != nil {
		r.log.Warnf("failed to archive webhook event %s: %v", id, err)
	}
}
