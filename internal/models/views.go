package models

// UserView is the public representation of a user
type UserView struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// RecipeIngredientView is an ingredient line with the amount used by one recipe
type RecipeIngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeView is the denormalized recipe returned by every read and write
type RecipeView struct {
	ID               uint                   `json:"id"`
	Tags             []Tag                  `json:"tags"`
	Author           *UserView              `json:"author"`
	Ingredients      []RecipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

// RecipePreview is the short form used by favorites, the cart and subscriptions
type RecipePreview struct {
	Author      *uint  `json:"author"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionView is a followed author with a preview of their recipes
type SubscriptionView struct {
	UserView
	RecipesCount int64           `json:"recipes_count"`
	Recipes      []RecipePreview `json:"recipes"`
}

// ShoppingListItem is one aggregated line of a shopping list
type ShoppingListItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	TotalAmount     int    `json:"total_amount"`
}

// RecipeStats is the staff view of a recipe's popularity
type RecipeStats struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	AuthorID       *uint  `json:"author"`
	FavoritesCount int64  `json:"favorites_count"`
	Ingredients    string `json:"ingredients"`
}
