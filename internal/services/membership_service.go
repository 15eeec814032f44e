package services

import (
	"context"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipService toggles a user to recipe relation such as favorites or the shopping cart
type MembershipService interface {
	// Add creates the relation and returns the recipe preview
	Add(ctx context.Context, userID, recipeID uint) (*models.RecipePreview, error)
	// Remove deletes the relation; a missing relation is a permission error
	Remove(ctx context.Context, userID, recipeID uint) error
}

type membershipService[T any] struct {
	db    *gorm.DB
	kind  string
	label string
	build func(userID, recipeID uint) *T
}

// NewFavoriteService returns the MembershipService backing favorites
func NewFavoriteService(db *gorm.DB) MembershipService {
	return &membershipService[models.Favorite]{
		db:    db,
		kind:  "favorite",
		label: "favorites",
		build: func(userID, recipeID uint) *models.Favorite {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
	}
}

// NewCartService returns the MembershipService backing the shopping cart
func NewCartService(db *gorm.DB) MembershipService {
	return &membershipService[models.CartItem]{
		db:    db,
		kind:  "shopping_cart",
		label: "shopping cart",
		build: func(userID, recipeID uint) *models.CartItem {
			return &models.CartItem{UserID: userID, RecipeID: recipeID}
		},
	}
}

func (s *membershipService[T]) Add(ctx context.Context, userID, recipeID uint) (*models.RecipePreview, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(new(T)).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, conflictError("Recipe is already in " + s.label + ".")
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Recipe not found")
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(s.build(userID, recipeID)).Error; err != nil {
		if isDuplicate(err) {
			return nil, conflictError("Recipe is already in " + s.label + ".")
		}
		return nil, err
	}

	metrics.Memberships.WithLabelValues(s.kind, "add").Inc()
	log.WithFields(logrus.Fields{"kind": s.kind, "user_id": userID, "recipe_id": recipeID}).Debug("Recipe added")
	preview := recipePreview(recipe)
	return &preview, nil
}

func (s *membershipService[T]) Remove(ctx context.Context, userID, recipeID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return permissionError("Recipe is not in " + s.label + ".")
	}

	metrics.Memberships.WithLabelValues(s.kind, "remove").Inc()
	log.WithFields(logrus.Fields{"kind": s.kind, "user_id": userID, "recipe_id": recipeID}).Debug("Recipe removed")
	return nil
}
