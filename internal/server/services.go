package server

import (
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"gorm.io/gorm"
)

// Services bundles the domain services sharing one database handle
type Services struct {
	Users         services.UserService
	Recipes       services.RecipeService
	Favorites     services.MembershipService
	Cart          services.MembershipService
	ShoppingList  services.ShoppingListService
	Subscriptions services.SubscriptionService
	Reference     services.ReferenceService
	Clients       services.ClientService
}

// NewServices wires every domain service to db. images stores recipe uploads
// and cacheSize bounds the tag and ingredient cache.
func NewServices(db *gorm.DB, images storage.ImageStore, cacheSize int) *Services {
	return &Services{
		Users:         services.NewUserService(db),
		Recipes:       services.NewRecipeService(db, images),
		Favorites:     services.NewFavoriteService(db),
		Cart:          services.NewCartService(db),
		ShoppingList:  services.NewShoppingListService(db),
		Subscriptions: services.NewSubscriptionService(db),
		Reference:     services.NewReferenceService(db, cacheSize),
		Clients:       services.NewClientService(db),
	}
}
