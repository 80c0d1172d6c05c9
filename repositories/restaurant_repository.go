package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/foodcourt-api/models"
	"gorm.io/gorm"
)

// ErrRestaurantNotFound is returned when a restaurant id does not resolve
var ErrRestaurantNotFound = errors.New("restaurant not found")

// RestaurantRepository reads the restaurant and menu data consulted at checkout
type RestaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository creates a restaurant repository
func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// FindByID loads a restaurant
func (r *RestaurantRepository) FindByID(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to load restaurant %s: %w", id, err)
	}
	return &restaurant, nil
}

// MenuPrices returns the current price of each available menu item of the
// restaurant among ids. Unknown or unavailable items are absent from the map.
func (r *RestaurantRepository) MenuPrices(ctx context.Context, restaurantID string, ids []string) (map[string]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ? AND is_available = ?", restaurantID, ids, true).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}

	byID := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}
