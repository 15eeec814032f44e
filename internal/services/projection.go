package services

import (
	"context"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"gorm.io/gorm"
)

// withRecipeRelations preloads everything a RecipeView needs
func withRecipeRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Author").
		Preload("RecipeIngredients", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("RecipeIngredients.Ingredient")
}

// ProjectRecipe builds the read view of a recipe for viewerID.
// Anonymous viewers (nil) always get false flags and no lookup is made.
func ProjectRecipe(ctx context.Context, db *gorm.DB, recipe models.Recipe, viewerID *uint) (*models.RecipeView, error) {
	views, err := projectRecipes(ctx, db, []models.Recipe{recipe}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func projectRecipes(ctx context.Context, db *gorm.DB, recipes []models.Recipe, viewerID *uint) ([]models.RecipeView, error) {
	views := make([]models.RecipeView, 0, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	ids := make([]uint, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}

	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	if viewerID != nil {
		var err error
		if favorited, err = memberRecipeIDs(ctx, db, &models.Favorite{}, *viewerID, ids); err != nil {
			return nil, err
		}
		if inCart, err = memberRecipeIDs(ctx, db, &models.CartItem{}, *viewerID, ids); err != nil {
			return nil, err
		}
	}

	authors := make([]models.User, 0, len(recipes))
	seen := map[uint]bool{}
	for _, r := range recipes {
		if r.Author != nil && !seen[r.Author.ID] {
			seen[r.Author.ID] = true
			authors = append(authors, *r.Author)
		}
	}
	authorViews, err := projectUsers(ctx, db, authors, viewerID)
	if err != nil {
		return nil, err
	}
	byAuthor := make(map[uint]*models.UserView, len(authorViews))
	for i := range authorViews {
		byAuthor[authorViews[i].ID] = &authorViews[i]
	}

	for _, r := range recipes {
		view := models.RecipeView{
			ID:               r.ID,
			Tags:             r.Tags,
			Ingredients:      make([]models.RecipeIngredientView, 0, len(r.RecipeIngredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		if view.Tags == nil {
			view.Tags = []models.Tag{}
		}
		if r.Author != nil {
			view.Author = byAuthor[r.Author.ID]
		}
		for _, line := range r.RecipeIngredients {
			view.Ingredients = append(view.Ingredients, models.RecipeIngredientView{
				ID:              line.Ingredient.ID,
				Name:            line.Ingredient.Name,
				MeasurementUnit: line.Ingredient.MeasurementUnit,
				Amount:          line.Amount,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

// memberRecipeIDs returns which of recipeIDs the user has in the given membership table
func memberRecipeIDs(ctx context.Context, db *gorm.DB, model interface{}, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	var found []uint
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &found).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(found))
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

// projectUsers builds user views; is_subscribed follows the same anonymous short-circuit
func projectUsers(ctx context.Context, db *gorm.DB, users []models.User, viewerID *uint) ([]models.UserView, error) {
	views := make([]models.UserView, 0, len(users))
	if len(users) == 0 {
		return views, nil
	}

	subscribed := map[uint]bool{}
	if viewerID != nil {
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var authorIDs []uint
		err := db.WithContext(ctx).Model(&models.Subscription{}).
			Where("user_id = ? AND author_id IN ?", *viewerID, ids).
			Pluck("author_id", &authorIDs).Error
		if err != nil {
			return nil, err
		}
		for _, id := range authorIDs {
			subscribed[id] = true
		}
	}

	for _, u := range users {
		views = append(views, userView(u, subscribed[u.ID]))
	}
	return views, nil
}

func userView(u models.User, subscribed bool) models.UserView {
	return models.UserView{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func recipePreview(r models.Recipe) models.RecipePreview {
	return models.RecipePreview{
		Author:      r.AuthorID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}
