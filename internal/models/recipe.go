package models

import (
	"time"
)

// Ingredient is reference data: a product and the unit it is measured in
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null;index" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null" json:"measurement_unit"`
}

// Tag is reference data used to categorise recipes
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Color string `gorm:"size:7;uniqueIndex;not null" json:"color"`
	Slug  string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
}

// Recipe is a user authored dish. AuthorID becomes NULL when the author is deleted.
type Recipe struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null"`
	AuthorID    *uint  `gorm:"index"`
	Text        string `gorm:"type:text;not null"`
	Image       string `gorm:"size:500;not null"`
	CookingTime int    `gorm:"not null;check:cooking_time > 0"`
	CreatedAt   time.Time

	Author            *User              `gorm:"constraint:OnDelete:SET NULL"`
	Tags              []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	RecipeIngredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE"`
}

// RecipeIngredient is one ingredient line of a recipe with its amount
type RecipeIngredient struct {
	ID           uint `gorm:"primaryKey"`
	RecipeID     uint `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Amount       int  `gorm:"not null;check:amount > 0"`

	Ingredient Ingredient `gorm:"constraint:OnDelete:CASCADE"`
}

// RecipeTag is the join row behind Recipe.Tags
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey"`
	TagID    uint `gorm:"primaryKey;index"`
}

// Favorite bookmarks a recipe for a user
type Favorite struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_favorite_pair;index"`
	CreatedAt time.Time

	User   User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE"`
}

// CartItem puts a recipe on a user's shopping list
type CartItem struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_pair"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_cart_pair;index"`
	CreatedAt time.Time

	User   User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE"`
}
