package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Restaurant carries the flags and fee schedule consulted at checkout.
// The catalog itself is managed elsewhere.
type Restaurant struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	OwnerID     uint            `gorm:"not null;index" json:"ownerId"`
	IsActive    bool            `gorm:"not null;default:true" json:"isActive"`
	IsOpen      bool            `gorm:"not null;default:false" json:"isOpen"`
	DeliveryFee decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"deliveryFee"`
	MinOrder    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"minOrder"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for the Restaurant model
func (Restaurant) TableName() string {
	return "restaurants"
}

// BeforeCreate assigns a UUID when none was provided
func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AcceptsOrders reports whether checkout is currently allowed
func (r Restaurant) AcceptsOrders() bool {
	return r.IsActive && r.IsOpen
}

// MenuItem is a priced dish offered by a restaurant
type MenuItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string          `gorm:"not null;index" json:"restaurantId"`
	Name         string          `gorm:"not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"isAvailable"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// BeforeCreate assigns a UUID when none was provided
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
