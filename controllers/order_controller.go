package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/foodcourt-api/models"
	"github.com/kendall-kelly/foodcourt-api/services"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one cart line of a create-order request
type OrderItemRequest struct {
	MenuItemID     string           `json:"menuItemId" binding:"required"`
	Quantity       int              `json:"quantity" binding:"required,gte=1,lte=1000"`
	Price          *decimal.Decimal `json:"price" binding:"required"`
	SpecialRequest *string          `json:"specialRequest"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	RestaurantID        string             `json:"restaurantId" binding:"required"`
	Items               []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress     string             `json:"deliveryAddress" binding:"required"`
	DeliveryLat         *float64           `json:"deliveryLat" binding:"omitempty,min=-90,max=90"`
	DeliveryLng         *float64           `json:"deliveryLng" binding:"omitempty,min=-180,max=180"`
	SpecialInstructions *string            `json:"specialInstructions"`
	PaymentMethod       string             `json:"paymentMethod" binding:"required,oneof=CARD CASH WALLET"`
}

// UpdateOrderStatusRequest represents the request body for a status change
type UpdateOrderStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

// CreateOrder handles POST /api/v1/orders - places an order for the current user
func CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "Invalid input", err)
		return
	}

	input := services.CreateOrderInput{
		RestaurantID:        req.RestaurantID,
		DeliveryAddress:     req.DeliveryAddress,
		DeliveryLat:         req.DeliveryLat,
		DeliveryLng:         req.DeliveryLng,
		SpecialInstructions: req.SpecialInstructions,
		PaymentMethod:       models.PaymentMethod(req.PaymentMethod),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.OrderItemInput{
			MenuItemID:     item.MenuItemID,
			Quantity:       item.Quantity,
			Price:          *item.Price,
			SpecialRequest: item.SpecialRequest,
		})
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders handles GET /api/v1/orders - lists the current user's orders
func ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := services.GetOrderService().ListOrders(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder handles GET /api/v1/orders/:id - order details with its tracking log
func GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/update-status
func UpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "Invalid input", err)
		return
	}

	order, err := services.GetOrderService().UpdateStatus(c.Request.Context(), actor, services.UpdateStatusInput{
		OrderID: c.Param("id"),
		Status:  req.Status,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
