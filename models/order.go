package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Money goes over the wire as JSON numbers, matching the request format
	decimal.MarshalJSONWithoutQuotes = true
}

// Order represents one placed food order. Monetary fields are computed once
// at creation and never recomputed from current menu prices.
type Order struct {
	ID                  string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderNumber         string          `gorm:"uniqueIndex;not null" json:"orderNumber"`
	UserID              uint            `gorm:"not null;index" json:"userId"`
	RestaurantID        string          `gorm:"not null;index" json:"restaurantId"`
	Restaurant          *Restaurant     `gorm:"foreignKey:RestaurantID" json:"restaurant,omitempty"`
	DeliveryPartnerID   *uint           `gorm:"index" json:"deliveryPartnerId"` // nullable, set when a courier is assigned
	Items               []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Tracking            []OrderTracking `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"tracking,omitempty"`
	DeliveryAddress     string          `gorm:"type:text;not null" json:"deliveryAddress"`
	DeliveryLat         *float64        `json:"deliveryLat"`
	DeliveryLng         *float64        `json:"deliveryLng"`
	SpecialInstructions *string         `gorm:"type:text" json:"specialInstructions"`
	PaymentMethod       PaymentMethod   `gorm:"type:varchar(16);not null" json:"paymentMethod"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	DeliveryFee         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"deliveryFee"`
	Tax                 decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"tax"`
	Total               decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	Status              OrderStatus     `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	PaymentStatus       PaymentStatus   `gorm:"type:varchar(16);not null;default:'PENDING'" json:"paymentStatus"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	DeliveredAt         *time.Time      `json:"deliveredAt"` // set only on transition into DELIVERED
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns a UUID when none was provided
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem is one line of an order with the unit price captured at order time
type OrderItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        string          `gorm:"not null;index" json:"orderId"`
	MenuItemID     string          `gorm:"not null" json:"menuItemId"`
	Quantity       int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	SpecialRequest *string         `gorm:"type:text" json:"specialRequest"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
