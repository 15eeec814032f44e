package controllers

import (
	"fmt"
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/gin-gonic/gin"
)

// RecipeController handles HTTP requests related to recipes, favorites and the shopping cart
type RecipeController interface {
	// ListRecipes retrieves recipes, newest first
	ListRecipes(c *gin.Context)
	// GetRecipe retrieves a recipe by its ID
	GetRecipe(c *gin.Context)
	// CreateRecipe creates a recipe with its tags and ingredients
	CreateRecipe(c *gin.Context)
	// UpdateRecipe replaces a recipe's fields, tags and ingredients
	UpdateRecipe(c *gin.Context)
	// DeleteRecipe deletes a recipe by its ID
	DeleteRecipe(c *gin.Context)
	AddFavorite(c *gin.Context)
	RemoveFavorite(c *gin.Context)
	AddToShoppingCart(c *gin.Context)
	RemoveFromShoppingCart(c *gin.Context)
	// DownloadShoppingCart renders the aggregated shopping list as a text file
	DownloadShoppingCart(c *gin.Context)
	// RecipeStats reports favorites count and ingredients for staff
	RecipeStats(c *gin.Context)
}

type recipeController struct {
	recipes   services.RecipeService
	favorites services.MembershipService
	cart      services.MembershipService
	shopping  services.ShoppingListService
	users     services.UserService
}

// NewRecipeController creates a new instance of RecipeController
func NewRecipeController(
	recipes services.RecipeService,
	favorites services.MembershipService,
	cart services.MembershipService,
	shopping services.ShoppingListService,
	users services.UserService,
) RecipeController {
	return &recipeController{
		recipes:   recipes,
		favorites: favorites,
		cart:      cart,
		shopping:  shopping,
		users:     users,
	}
}

type ingredientAmountRequest struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required,gt=0"`
}

// RecipeRequest is the create and update payload.
// Image is a base64 data URL; it may be omitted on update.
type RecipeRequest struct {
	Ingredients []ingredientAmountRequest `json:"ingredients" binding:"required,min=1,dive"`
	Tags        []uint                    `json:"tags" binding:"required,min=1"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name" binding:"required,max=200"`
	Text        string                    `json:"text" binding:"required"`
	CookingTime int                       `json:"cooking_time" binding:"required,gt=0"`
}

func (r RecipeRequest) toInput() (services.RecipeInput, error) {
	in := services.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		CookingTime: r.CookingTime,
		TagIDs:      r.Tags,
		Ingredients: make([]services.IngredientLine, len(r.Ingredients)),
	}
	for i, line := range r.Ingredients {
		in.Ingredients[i] = services.IngredientLine{IngredientID: line.ID, Amount: line.Amount}
	}
	if r.Image != "" {
		img, err := storage.DecodeBase64Image(r.Image)
		if err != nil {
			return in, err
		}
		in.Image = img
	}
	return in, nil
}

// ListRecipes godoc
// @Summary List recipes
// @Description List recipes newest first. is_favorited and is_in_shopping_cart only apply to authenticated users.
// @Tags recipes
// @Produce json
// @Param author query int false "Author user ID"
// @Param tags query []string false "Tag slugs, any of them matches" collectionFormat(multi)
// @Param is_favorited query int false "1 to return only favorites"
// @Param is_in_shopping_cart query int false "1 to return only recipes in the shopping cart"
// @Param limit query int false "Maximum number of recipes"
// @Success 200 {array} models.RecipeView
// @Failure 500 {object} models.APIError
// @Router /api/recipes [get]
func (rc *recipeController) ListRecipes(c *gin.Context) {
	filter := services.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      queryBool(c, "is_favorited"),
		IsInShoppingCart: queryBool(c, "is_in_shopping_cart"),
		Limit:            queryInt(c, "limit", 0),
	}
	if author := queryInt(c, "author", 0); author > 0 {
		id := uint(author)
		filter.AuthorID = &id
	}

	recipes, err := rc.recipes.List(c.Request.Context(), filter, viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// GetRecipe godoc
// @Summary Get recipe by ID
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} models.RecipeView
// @Failure 404 {object} models.APIError
// @Router /api/recipes/{id} [get]
func (rc *recipeController) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := rc.recipes.Get(c.Request.Context(), id, viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// CreateRecipe godoc
// @Summary Create a recipe
// @Description Create a recipe with its tags and ingredient amounts in one transaction
// @Tags recipes
// @Accept json
// @Produce json
// @Param recipe body RecipeRequest true "Recipe"
// @Success 201 {object} models.RecipeView
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.OAuth2Error
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes [post]
func (rc *recipeController) CreateRecipe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := rc.recipes.Create(c.Request.Context(), caller, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// UpdateRecipe godoc
// @Summary Update a recipe
// @Description Replace a recipe's fields, tags and ingredients. Only the author or an admin may update.
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param recipe body RecipeRequest true "Recipe"
// @Success 200 {object} models.RecipeView
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id} [patch]
func (rc *recipeController) UpdateRecipe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := rc.recipes.Update(c.Request.Context(), caller, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe godoc
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id} [delete]
func (rc *recipeController) DeleteRecipe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := rc.recipes.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddFavorite godoc
// @Summary Add a recipe to favorites
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.RecipePreview
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite [post]
func (rc *recipeController) AddFavorite(c *gin.Context) {
	rc.addMember(c, rc.favorites)
}

// RemoveFavorite godoc
// @Summary Remove a recipe from favorites
// @Tags favorites
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite [delete]
func (rc *recipeController) RemoveFavorite(c *gin.Context) {
	rc.removeMember(c, rc.favorites)
}

// AddToShoppingCart godoc
// @Summary Add a recipe to the shopping cart
// @Tags shopping cart
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.RecipePreview
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/shopping_cart [post]
func (rc *recipeController) AddToShoppingCart(c *gin.Context) {
	rc.addMember(c, rc.cart)
}

// RemoveFromShoppingCart godoc
// @Summary Remove a recipe from the shopping cart
// @Tags shopping cart
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/shopping_cart [delete]
func (rc *recipeController) RemoveFromShoppingCart(c *gin.Context) {
	rc.removeMember(c, rc.cart)
}

func (rc *recipeController) addMember(c *gin.Context, members services.MembershipService) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	preview, err := members.Add(c.Request.Context(), caller.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, preview)
}

func (rc *recipeController) removeMember(c *gin.Context, members services.MembershipService) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := members.Remove(c.Request.Context(), caller.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart godoc
// @Summary Download the shopping list
// @Description Ingredient amounts of every recipe in the cart, summed per name and unit
// @Tags shopping cart
// @Produce plain
// @Success 200 {string} string "Shopping list"
// @Failure 400 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/download_shopping_cart [get]
func (rc *recipeController) DownloadShoppingCart(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	user, err := rc.users.GetUserByID(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	filename, body, err := rc.shopping.Download(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

// RecipeStats godoc
// @Summary Recipe statistics
// @Description Favorites count and ingredient names of a recipe
// @Tags admin
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} models.RecipeStats
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/recipes/{id}/stats [get]
func (rc *recipeController) RecipeStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := rc.recipes.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
