// Package server assembles the gin engine: middleware, routes and documentation.
package server

import (
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/controllers"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the router needs
type Dependencies struct {
	DB        *gorm.DB
	Services  *Services
	OAuth     *auth.OAuthService
	JWTSecret []byte
	// MediaPath and MediaRoot serve locally stored images; leave empty for S3
	MediaPath string
	MediaRoot string
	// AuthLimiter throttles login, registration and the token endpoint; nil disables it
	AuthLimiter *middleware.RateLimiter
	Logger      *logrus.Logger
}

// MaxRequestBodySize fits a base64 encoded image of storage.MaxImageSize plus the rest of a recipe
const MaxRequestBodySize = storage.MaxImageSize*4/3 + 1<<20

// NewRouter initializes the Gin router and sets up the routes
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	validation.RegisterWithGin()

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.WithFields(logrus.Fields{
				"panic":      recovered,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(middleware.ContextRequestIDKey),
			}).Error("Recovered from panic")
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				models.NewAPIError(models.ErrInternalServer, "Internal server error"))
		}),
		middleware.MaxBodySize(MaxRequestBodySize),
	)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "Not found."))
	})

	setupRoutes(router, deps)
	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine, deps Dependencies) {
	svc := deps.Services
	recipeController := controllers.NewRecipeController(svc.Recipes, svc.Favorites, svc.Cart, svc.ShoppingList, svc.Users)
	referenceController := controllers.NewReferenceController(svc.Reference)
	userController := controllers.NewUserController(svc.Users, svc.Subscriptions)
	authController := controllers.NewAuthController(svc.Users, deps.OAuth)
	clientController := controllers.NewClientController(svc.Clients)

	requireAuth := middleware.OAuth2Auth(deps.JWTSecret, deps.OAuth.Tokens())
	optionalAuth := middleware.OptionalOAuth2Auth(deps.JWTSecret, deps.OAuth.Tokens())
	throttle := func(c *gin.Context) { c.Next() }
	if deps.AuthLimiter != nil {
		throttle = middleware.RateLimit(deps.AuthLimiter)
	}

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if deps.MediaPath != "" && deps.MediaRoot != "" {
		router.Static(deps.MediaPath, deps.MediaRoot)
	}

	router.POST("/oauth/token", throttle, deps.OAuth.HandleToken)

	api := router.Group("/api")
	{
		tokenApi := api.Group("/auth/token")
		{
			tokenApi.POST("/login", throttle, authController.Login)
			tokenApi.POST("/logout", requireAuth, authController.Logout)
		}

		api.POST("/users", throttle, userController.Register)

		// Anonymous access allowed; flags are computed for the caller when a token is sent
		publicApi := api.Group("")
		publicApi.Use(optionalAuth)
		{
			publicApi.GET("/tags", referenceController.ListTags)
			publicApi.GET("/tags/:id", referenceController.GetTag)
			publicApi.GET("/ingredients", referenceController.ListIngredients)
			publicApi.GET("/ingredients/:id", referenceController.GetIngredient)
			publicApi.GET("/recipes", recipeController.ListRecipes)
			publicApi.GET("/recipes/:id", recipeController.GetRecipe)
			publicApi.GET("/users", userController.ListUsers)
			publicApi.GET("/users/:id", userController.GetUser)
		}

		protectedApi := api.Group("")
		protectedApi.Use(requireAuth)
		{
			protectedApi.GET("/users/me", userController.Me)
			protectedApi.POST("/users/set_password", userController.SetPassword)
			protectedApi.GET("/users/subscriptions", userController.ListSubscriptions)
			protectedApi.POST("/users/:id/subscribe", userController.Subscribe)
			protectedApi.DELETE("/users/:id/subscribe", userController.Unsubscribe)

			protectedApi.POST("/recipes", recipeController.CreateRecipe)
			protectedApi.PATCH("/recipes/:id", recipeController.UpdateRecipe)
			protectedApi.DELETE("/recipes/:id", recipeController.DeleteRecipe)
			protectedApi.GET("/recipes/download_shopping_cart", recipeController.DownloadShoppingCart)
			protectedApi.POST("/recipes/:id/favorite", recipeController.AddFavorite)
			protectedApi.DELETE("/recipes/:id/favorite", recipeController.RemoveFavorite)
			protectedApi.POST("/recipes/:id/shopping_cart", recipeController.AddToShoppingCart)
			protectedApi.DELETE("/recipes/:id/shopping_cart", recipeController.RemoveFromShoppingCart)
		}

		adminApi := api.Group("/admin")
		adminApi.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
		{
			adminApi.POST("/tags", referenceController.CreateTag)
			adminApi.POST("/ingredients", referenceController.CreateIngredient)
			adminApi.GET("/recipes/:id/stats", recipeController.RecipeStats)
			adminApi.POST("/clients", clientController.CreateClient)
			adminApi.GET("/clients/:id", clientController.GetClient)
		}
	}
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service and its database are reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "gin-foodgram-api",
		})
	}
}
