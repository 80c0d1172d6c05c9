package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/kendall-kelly/foodcourt-api/models"
	"github.com/kendall-kelly/foodcourt-api/pricing"
	"github.com/kendall-kelly/foodcourt-api/repositories"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderPlacedMessage = "Order placed"

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID uint
	Role   models.Role
}

// OrderItemInput is one requested cart line
type OrderItemInput struct {
	MenuItemID     string
	Quantity       int
	Price          decimal.Decimal
	SpecialRequest *string
}

// CreateOrderInput is a validated checkout request
type CreateOrderInput struct {
	RestaurantID        string
	Items               []OrderItemInput
	DeliveryAddress     string
	DeliveryLat         *float64
	DeliveryLng         *float64
	SpecialInstructions *string
	PaymentMethod       models.PaymentMethod
}

// UpdateStatusInput is a request to move an order to a new status
type UpdateStatusInput struct {
	OrderID string
	Status  string
	Message string
}

// OrderServiceOptions tunes lifecycle behaviour
type OrderServiceOptions struct {
	// StrictTransitions rejects anything but forward progression or cancellation
	StrictTransitions bool
	// CatalogPrices prices lines from the menu instead of the submitted prices
	CatalogPrices bool
}

// OrderService owns order creation and status transitions
type OrderService struct {
	orders      *repositories.OrderRepository
	restaurants *repositories.RestaurantRepository
	locker      OrderLocker
	events      EventPublisher
	opts        OrderServiceOptions
	log         *log.Helper
	now         func() time.Time
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service on top of db
func NewOrderService(db *gorm.DB, locker OrderLocker, events EventPublisher, opts OrderServiceOptions, logger log.Logger) *OrderService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &OrderService{
		orders:      repositories.NewOrderRepository(db, logger),
		restaurants: repositories.NewRestaurantRepository(db),
		locker:      locker,
		events:      events,
		opts:        opts,
		log:         log.NewHelper(log.With(logger, "module", "services/order")),
		now:         time.Now,
	}
}

// InitOrderService creates the order service and registers it globally
func InitOrderService(db *gorm.DB, locker OrderLocker, events EventPublisher, opts OrderServiceOptions, logger log.Logger) *OrderService {
	orderServiceInstance = NewOrderService(db, locker, events, opts, logger)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

// CreateOrder validates the cart, prices it and persists the order together
// with its first tracking entry
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	if problems := validateCreateInput(input); len(problems) > 0 {
		return nil, invalidInput("Invalid input", problems)
	}

	restaurant, err := s.restaurants.FindByID(ctx, input.RestaurantID)
	if err != nil && !errors.Is(err, repositories.ErrRestaurantNotFound) {
		return nil, internalError("Failed to load restaurant", err)
	}
	if restaurant == nil || !restaurant.AcceptsOrders() {
		return nil, newError(CodeRestaurantUnavailable, "Restaurant not available")
	}

	items := input.Items
	if s.opts.CatalogPrices {
		if items, err = s.applyMenuPrices(ctx, restaurant.ID, items); err != nil {
			return nil, err
		}
	}

	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	quote, err := pricing.Quote(lines, pricing.FeeSchedule{
		DeliveryFee:  restaurant.DeliveryFee,
		MinimumOrder: restaurant.MinOrder,
	})
	if err != nil {
		var belowMinimum *pricing.BelowMinimumError
		if errors.As(err, &belowMinimum) {
			return nil, &Error{
				Code:    CodeBelowMinimumOrder,
				Message: belowMinimum.Error(),
				Details: map[string]interface{}{
					"minimum":  belowMinimum.Minimum.StringFixed(pricing.CurrencyPlaces),
					"subtotal": belowMinimum.Subtotal.StringFixed(pricing.CurrencyPlaces),
				},
				Err: err,
			}
		}
		if errors.Is(err, pricing.ErrAmountOutOfRange) {
			return nil, invalidInput("Order total exceeds the maximum", map[string]interface{}{
				"maximum": pricing.MaxAmount.StringFixed(pricing.CurrencyPlaces),
			})
		}
		return nil, internalError("Failed to price order", err)
	}

	now := s.now()
	order := &models.Order{
		OrderNumber:         newOrderNumber(),
		UserID:              actor.UserID,
		RestaurantID:        restaurant.ID,
		DeliveryAddress:     strings.TrimSpace(input.DeliveryAddress),
		DeliveryLat:         input.DeliveryLat,
		DeliveryLng:         input.DeliveryLng,
		SpecialInstructions: input.SpecialInstructions,
		PaymentMethod:       input.PaymentMethod,
		Subtotal:            quote.Subtotal,
		DeliveryFee:         quote.DeliveryFee,
		Tax:                 quote.Tax,
		Total:               quote.Total,
		Status:              models.OrderStatusPending,
		PaymentStatus:       models.PaymentStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID:     item.MenuItemID,
			Quantity:       item.Quantity,
			Price:          item.Price,
			SpecialRequest: item.SpecialRequest,
		})
	}

	message := orderPlacedMessage
	initial := models.OrderTracking{Status: models.OrderStatusPending, Message: &message, CreatedAt: now}
	if err := s.orders.Create(ctx, order, initial); err != nil {
		s.log.Errorf("failed to create order for user %d: %v", actor.UserID, err)
		return nil, internalError("Failed to create order", err)
	}
	order.Restaurant = restaurant

	s.log.Infof("order %s (%s) placed by user %d, total %s", order.ID, order.OrderNumber, actor.UserID, order.Total.StringFixed(pricing.CurrencyPlaces))
	s.publish(ctx, OrderEvent{
		Type:          EventOrderCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		RestaurantID:  order.RestaurantID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		OccurredAt:    now,
	})
	return order, nil
}

// UpdateStatus applies an authorized status change and appends its tracking entry
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, input UpdateStatusInput) (*models.Order, error) {
	target, err := models.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, invalidInput("Invalid input", map[string]interface{}{
			"status":  input.Status,
			"allowed": models.OrderStatuses(),
		})
	}

	// Unknown orders and unauthorized callers never contend for the lock
	if _, err := s.loadForStatusUpdate(ctx, actor, input.OrderID); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, input.OrderID)
	defer release()
	if err != nil {
		s.log.Warnf("could not lock order %s: %v", input.OrderID, err)
		return nil, &Error{Code: CodeOrderLocked, Message: "Order is being updated, try again", Retryable: true, Err: err}
	}

	order, err := s.loadForStatusUpdate(ctx, actor, input.OrderID)
	if err != nil {
		return nil, err
	}

	if s.opts.StrictTransitions && !order.Status.CanTransitionTo(target) {
		return nil, &Error{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("Cannot change status from %s to %s", order.Status, target),
			Details: map[string]interface{}{"from": order.Status, "to": target},
		}
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = fmt.Sprintf("Order status updated to %s", target)
	}

	updated, err := s.orders.UpdateStatus(ctx, repositories.StatusChange{
		OrderID: order.ID,
		From:    order.Status,
		To:      target,
		Message: message,
		At:      s.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return nil, newError(CodeNotFound, "Order not found")
		case errors.Is(err, repositories.ErrStatusConflict):
			return nil, &Error{Code: CodeStatusConflict, Message: "Order status changed concurrently, reload and retry", Retryable: true, Err: err}
		}
		s.log.Errorf("failed to update order %s status: %v", order.ID, err)
		return nil, internalError("Failed to update order status", err)
	}

	s.publish(ctx, OrderEvent{
		Type:          EventOrderStatusChanged,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		RestaurantID:  updated.RestaurantID,
		Status:        updated.Status,
		PaymentStatus: updated.PaymentStatus,
		Message:       message,
		OccurredAt:    updated.UpdatedAt,
	})
	return updated, nil
}

// GetOrder returns an order with its items and tracking log to anyone
// involved in it
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, newError(CodeNotFound, "Order not found")
		}
		return nil, internalError("Failed to load order", err)
	}

	if order.UserID != actor.UserID && !canUpdateStatus(actor, order) {
		return nil, newError(CodeForbidden, "Forbidden")
	}
	return order, nil
}

// ListOrders returns the actor's own orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, status string) ([]models.Order, error) {
	var filter *models.OrderStatus
	if status != "" {
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return nil, invalidInput("Invalid status filter", map[string]interface{}{
				"status":  status,
				"allowed": models.OrderStatuses(),
			})
		}
		filter = &parsed
	}

	orders, err := s.orders.ListByUser(ctx, actor.UserID, filter)
	if err != nil {
		return nil, internalError("Failed to list orders", err)
	}
	return orders, nil
}

func (s *OrderService) applyMenuPrices(ctx context.Context, restaurantID string, items []OrderItemInput) ([]OrderItemInput, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.MenuItemID
	}

	menu, err := s.restaurants.MenuPrices(ctx, restaurantID, ids)
	if err != nil {
		return nil, internalError("Failed to load menu prices", err)
	}

	priced := make([]OrderItemInput, len(items))
	var unknown []string
	for i, item := range items {
		menuItem, ok := menu[item.MenuItemID]
		if !ok {
			unknown = append(unknown, item.MenuItemID)
			continue
		}
		item.Price = menuItem.Price
		priced[i] = item
	}
	if len(unknown) > 0 {
		return nil, invalidInput("Some menu items are not available", map[string]interface{}{"menuItemIds": unknown})
	}
	return priced, nil
}

func (s *OrderService) publish(ctx context.Context, event OrderEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warnf("failed to publish %s for order %s: %v", event.Type, event.OrderID, err)
	}
}

func (s *OrderService) loadForStatusUpdate(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, newError(CodeNotFound, "Order not found")
		}
		return nil, internalError("Failed to load order", err)
	}
	if !canUpdateStatus(actor, order) {
		return nil, newError(CodeForbidden, "Forbidden")
	}
	return order, nil
}

// canUpdateStatus allows admins, the owner of the order's restaurant and the
// delivery partner assigned to the order
func canUpdateStatus(actor Actor, order *models.Order) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if order.Restaurant != nil && order.Restaurant.OwnerID == actor.UserID {
		return true
	}
	return actor.Role == models.RoleDeliveryPartner &&
		order.DeliveryPartnerID != nil &&
		*order.DeliveryPartnerID == actor.UserID
}

func validateCreateInput(input CreateOrderInput) []string {
	var problems []string
	if strings.TrimSpace(input.RestaurantID) == "" {
		problems = append(problems, "restaurantId is required")
	}
	if len(input.Items) == 0 {
		problems = append(problems, "items must not be empty")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.MenuItemID) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].menuItemId is required", i))
		}
		if item.Quantity < 1 || item.Quantity > pricing.MaxQuantity {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be between 1 and %d", i, pricing.MaxQuantity))
		}
		switch {
		case item.Price.IsNegative():
			problems = append(problems, fmt.Sprintf("items[%d].price must not be negative", i))
		case item.Price.GreaterThan(pricing.MaxAmount):
			problems = append(problems, fmt.Sprintf("items[%d].price must not exceed %s", i, pricing.MaxAmount.StringFixed(pricing.CurrencyPlaces)))
		case !pricing.IsCurrencyPrecise(item.Price):
			problems = append(problems, fmt.Sprintf("items[%d].price must have at most %d decimal places", i, pricing.CurrencyPlaces))
		}
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		problems = append(problems, "deliveryAddress is required")
	}
	if input.DeliveryLat != nil && (*input.DeliveryLat < -90 || *input.DeliveryLat > 90) {
		problems = append(problems, "deliveryLat must be between -90 and 90")
	}
	if input.DeliveryLng != nil && (*input.DeliveryLng < -180 || *input.DeliveryLng > 180) {
		problems = append(problems, "deliveryLng must be between -180 and 180")
	}
	if !input.PaymentMethod.Valid() {
		problems = append(problems, "paymentMethod must be one of CARD, CASH, WALLET")
	}
	return problems
}

func newOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}
