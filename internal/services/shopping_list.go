package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"gorm.io/gorm"
)

const shoppingListHeader = "Shopping list:"

// ShoppingListService aggregates the ingredients of every recipe in a user's cart
type ShoppingListService interface {
	// Build sums amounts grouped by ingredient name and unit, ordered by name.
	// It returns ErrEmptyCart when the cart has no recipes.
	Build(ctx context.Context, userID uint) ([]models.ShoppingListItem, error)
	// Download renders the list as a text attachment
	Download(ctx context.Context, user *models.User) (filename string, body string, err error)
}

type shoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) ShoppingListService {
	return &shoppingListService{db: db}
}

func (s *shoppingListService) Build(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	var inCart int64
	if err := s.db.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&inCart).Error; err != nil {
		return nil, err
	}
	if inCart == 0 {
		return nil, ErrEmptyCart
	}

	items := []models.ShoppingListItem{}
	err := s.db.WithContext(ctx).
		Table("cart_items").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = cart_items.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *shoppingListService) Download(ctx context.Context, user *models.User) (string, string, error) {
	items, err := s.Build(ctx, user.ID)
	if err != nil {
		return "", "", err
	}
	metrics.ShoppingListsDownloaded.Inc()
	return ShoppingListFilename(user.Username), RenderShoppingList(items), nil
}

// RenderShoppingList formats one "- name (unit) - total" line per item under a header
func RenderShoppingList(items []models.ShoppingListItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s (%s) - %d", item.Name, item.MeasurementUnit, item.TotalAmount))
	}
	return shoppingListHeader + "\n" + strings.Join(lines, "\n")
}

func ShoppingListFilename(username string) string {
	return username + "_shopping_list.txt"
}
