package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOrderNotFound is returned when an order id does not resolve
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when the order's status changed between read and write
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository is the gorm-backed order store. Orders, their items,
// tracking log and payment row are only ever written through it.
type OrderRepository struct {
	db  *gorm.DB
	log *log.Helper
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB, logger log.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.NewHelper(log.With(logger, "module", "repositories/order")),
	}
}

// Create persists the order header, its line items, the initial tracking
// entry and a pending payment in a single transaction.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, initial models.OrderTracking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Restaurant", "Tracking").Create(order).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		initial.OrderID = order.ID
		if err := tx.Create(&initial).Error; err != nil {
			return fmt.Errorf("failed to insert order tracking: %w", err)
		}
		order.Tracking = []models.OrderTracking{initial}

		payment := models.Payment{
			OrderID: order.ID,
			Amount:  order.Total,
			Method:  order.PaymentMethod,
			Status:  models.PaymentStatusPending,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
}

// FindByID loads an order with its restaurant, line items and tracking log
// (oldest entry first).
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Restaurant").
		Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first, optionally filtered by status
func (r *OrderRepository) ListByUser(ctx context.Context, userID uint, status *models.OrderStatus) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var orders []models.Order
	if err := query.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// StatusChange describes one accepted status transition
type StatusChange struct {
	OrderID string
	From    models.OrderStatus // status observed when the change was accepted
	To      models.OrderStatus
	Message string
	At      time.Time
}

// UpdateStatus applies a status change and appends its tracking entry in one
// transaction. The update is conditional on the order still being in
// change.From, so the current status and the latest tracking entry never
// disagree.
func (r *OrderRepository) UpdateStatus(ctx context.Context, change StatusChange) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     change.To,
			"updated_at": change.At,
		}
		if change.To == models.OrderStatusDelivered {
			updates["delivered_at"] = change.At
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", change.OrderID, change.From).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", change.OrderID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check order: %w", err)
			}
			if count == 0 {
				return ErrOrderNotFound
			}
			return ErrStatusConflict
		}

		message := change.Message
		entry := models.OrderTracking{
			OrderID:   change.OrderID,
			Status:    change.To,
			Message:   &message,
			CreatedAt: change.At,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to insert order tracking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Infof("order %s status %s -> %s", change.OrderID, change.From, change.To)
	return r.FindByID(ctx, change.OrderID)
}

// PaymentOutcome is a terminal payment result reported by the gateway
type PaymentOutcome struct {
	OrderID       string
	Status        models.PaymentStatus // COMPLETED or FAILED
	FailureReason string
	At            time.Time
}

// ApplyPaymentOutcome upserts the order's payment row and mirrors the status
// onto the order. Applying the same outcome again leaves the stored state
// unchanged, and a COMPLETED payment is never downgraded. It reports whether
// anything changed.
func (r *OrderRepository) ApplyPaymentOutcome(ctx context.Context, outcome PaymentOutcome) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serializes outcomes for one order (no-op on sqlite)
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "total", "payment_method", "payment_status").
			First(&order, "id = ?", outcome.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order: %w", err)
		}

		var payment models.Payment
		err := tx.Where("order_id = ?", outcome.OrderID).
			Limit(1).
			Find(&payment).Error
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}

		if payment.ID != 0 && payment.Status == models.PaymentStatusCompleted {
			// Completed is final; replays and late failure notices are no-ops
			return nil
		}
		if payment.ID != 0 && payment.Status == outcome.Status {
			return nil
		}

		changed, err = writePaymentOutcome(tx, order, outcome)
		return err
	})
	return changed, err
}

// writePaymentOutcome stores the outcome on the payment row and the order.
// Both writes are conditional on the payment not being COMPLETED, so a
// writer acting on a stale read cannot downgrade a paid order.
func writePaymentOutcome(tx *gorm.DB, order models.Order, outcome PaymentOutcome) (bool, error) {
	next := models.Payment{
		OrderID: outcome.OrderID,
		Amount:  order.Total,
		Method:  order.PaymentMethod,
		Status:  outcome.Status,
	}
	assignments := map[string]interface{}{
		"status":     outcome.Status,
		"updated_at": outcome.At,
	}
	switch outcome.Status {
	case models.PaymentStatusCompleted:
		next.PaidAt = &outcome.At
		assignments["paid_at"] = outcome.At
		assignments["failure_reason"] = nil
	case models.PaymentStatusFailed:
		reason := outcome.FailureReason
		next.FailureReason = &reason
		assignments["failure_reason"] = reason
	}

	upsert := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.Assignments(assignments),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "payments.status <> ?", Vars: []interface{}{models.PaymentStatusCompleted}},
		}},
	}).Create(&next)
	if upsert.Error != nil {
		return false, fmt.Errorf("failed to upsert payment: %w", upsert.Error)
	}
	if upsert.RowsAffected == 0 {
		return false, nil
	}

	if err := tx.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", outcome.OrderID, models.PaymentStatusCompleted).
		Updates(map[string]interface{}{"payment_status": outcome.Status, "updated_at": outcome.At}).Error; err != nil {
		return false, fmt.Errorf("failed to update order payment status: %w", err)
	}
	return true, nil
}

// FindPayment returns the payment row for an order
func (r *OrderRepository) FindPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}
