package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the single payment attempt tied to an order. It is keyed by
// order id and only the payment reconciliation flow changes its status.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"orderId"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(16);not null" json:"method"`
	Status        PaymentStatus   `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	PaidAt        *time.Time      `json:"paidAt"`
	FailureReason *string         `gorm:"type:text" json:"failureReason"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
