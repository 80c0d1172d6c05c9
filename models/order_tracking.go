package models

import "time"

// OrderTracking is an append-only audit entry recording a status an order entered.
// Entries are never updated or deleted.
type OrderTracking struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   string      `gorm:"not null;index" json:"orderId"`
	Status    OrderStatus `gorm:"type:varchar(16);not null" json:"status"`
	Message   *string     `gorm:"type:text" json:"message"`
	CreatedAt time.Time   `gorm:"not null;index" json:"createdAt"`
}

// TableName specifies the table name for the OrderTracking model
func (OrderTracking) TableName() string {
	return "order_trackings"
}
