package services

import (
	"context"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientLine is one requested (ingredient, amount) pair
type IngredientLine struct {
	IngredientID uint
	Amount       int
}

// RecipeInput is the full write payload for create and update.
// Image is required on create; on update nil keeps the stored image.
type RecipeInput struct {
	Name        string
	Text        string
	CookingTime int
	Image       *storage.Image
	TagIDs      []uint
	Ingredients []IngredientLine
}

// RecipeFilter narrows List. The membership flags are ignored for anonymous viewers.
type RecipeFilter struct {
	AuthorID         *uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
}

type RecipeService interface {
	Create(ctx context.Context, actor Actor, in RecipeInput) (*models.RecipeView, error)
	Update(ctx context.Context, actor Actor, id uint, in RecipeInput) (*models.RecipeView, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Get(ctx context.Context, id uint, viewerID *uint) (*models.RecipeView, error)
	List(ctx context.Context, filter RecipeFilter, viewerID *uint) ([]models.RecipeView, error)
	Stats(ctx context.Context, id uint) (*models.RecipeStats, error)
}

type recipeService struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewRecipeService(db *gorm.DB, images storage.ImageStore) RecipeService {
	return &recipeService{db: db, images: images}
}

func validateRecipeInput(in RecipeInput, requireImage bool) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name", "This field may not be blank.")
	}
	if strings.TrimSpace(in.Text) == "" {
		return validationError("text", "This field may not be blank.")
	}
	if in.CookingTime < 1 {
		return validationError("cooking_time", "Cooking time must be at least 1 minute.")
	}
	if requireImage && in.Image == nil {
		return validationError("image", "This field is required.")
	}

	if len(in.TagIDs) == 0 {
		return validationError("tags", "Select at least one tag.")
	}
	seenTags := make(map[uint]bool, len(in.TagIDs))
	for _, id := range in.TagIDs {
		if seenTags[id] {
			return validationError("tags", "Tags must be unique.")
		}
		seenTags[id] = true
	}

	if len(in.Ingredients) == 0 {
		return validationError("ingredients", "Add at least one ingredient.")
	}
	seenIngredients := make(map[uint]bool, len(in.Ingredients))
	for _, line := range in.Ingredients {
		if line.Amount < 1 {
			return validationError("ingredients", "Amount must be greater than zero.")
		}
		if seenIngredients[line.IngredientID] {
			return validationError("ingredients", "Ingredients must be unique.")
		}
		seenIngredients[line.IngredientID] = true
	}
	return nil
}

func (s *recipeService) Create(ctx context.Context, actor Actor, in RecipeInput) (*models.RecipeView, error) {
	if err := validateRecipeInput(in, true); err != nil {
		return nil, err
	}

	imageRef, err := s.images.Save(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	authorID := actor.UserID
	recipe := models.Recipe{
		Name:        strings.TrimSpace(in.Name),
		AuthorID:    &authorID,
		Text:        in.Text,
		Image:       imageRef,
		CookingTime: in.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, recipe.ID, in.TagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, in.Ingredients)
	})
	if err != nil {
		s.discardImage(ctx, imageRef)
		return nil, err
	}

	metrics.RecipesWritten.WithLabelValues("create").Inc()
	log.WithFields(logrus.Fields{"recipe_id": recipe.ID, "author_id": actor.UserID}).Info("Recipe created")
	return s.Get(ctx, recipe.ID, &actor.UserID)
}

func (s *recipeService) Update(ctx context.Context, actor Actor, id uint, in RecipeInput) (*models.RecipeView, error) {
	current, err := s.ownedRecipe(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateRecipeInput(in, false); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         strings.TrimSpace(in.Name),
		"text":         in.Text,
		"cooking_time": in.CookingTime,
	}
	var newImage string
	if in.Image != nil {
		if newImage, err = s.images.Save(ctx, in.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, id, in.TagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, id, in.Ingredients)
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	if newImage != "" {
		s.discardImage(ctx, current.Image)
	}

	metrics.RecipesWritten.WithLabelValues("update").Inc()
	log.WithFields(logrus.Fields{"recipe_id": id, "user_id": actor.UserID}).Info("Recipe updated")
	return s.Get(ctx, id, &actor.UserID)
}

// Delete removes the recipe and every row that points at it in one transaction
func (s *recipeService) Delete(ctx context.Context, actor Actor, id uint) error {
	recipe, err := s.ownedRecipe(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.RecipeTag{}, &models.RecipeIngredient{}, &models.Favorite{}, &models.CartItem{}} {
			if err := tx.Where("recipe_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return err
	}
	s.discardImage(ctx, recipe.Image)

	metrics.RecipesWritten.WithLabelValues("delete").Inc()
	log.WithFields(logrus.Fields{"recipe_id": id, "user_id": actor.UserID}).Info("Recipe deleted")
	return nil
}

func (s *recipeService) Get(ctx context.Context, id uint, viewerID *uint) (*models.RecipeView, error) {
	var recipe models.Recipe
	if err := withRecipeRelations(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Recipe not found")
		}
		return nil, err
	}
	return ProjectRecipe(ctx, s.db, recipe, viewerID)
}

func (s *recipeService) List(ctx context.Context, filter RecipeFilter, viewerID *uint) ([]models.RecipeView, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if viewerID != nil && filter.IsFavorited {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewerID))
	}
	if viewerID != nil && filter.IsInShoppingCart {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.CartItem{}).Select("recipe_id").Where("user_id = ?", *viewerID))
	}
	query = query.Order("recipes.id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var recipes []models.Recipe
	if err := withRecipeRelations(query).Find(&recipes).Error; err != nil {
		return nil, err
	}
	return projectRecipes(ctx, s.db, recipes, viewerID)
}

// Stats reports the admin view of a recipe, including how many users favorited it
func (s *recipeService) Stats(ctx context.Context, id uint) (*models.RecipeStats, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("RecipeIngredients", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("RecipeIngredients.Ingredient").
		First(&recipe, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Recipe not found")
		}
		return nil, err
	}

	var favorites int64
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).Where("recipe_id = ?", id).Count(&favorites).Error; err != nil {
		return nil, err
	}

	names := make([]string, 0, len(recipe.RecipeIngredients))
	for _, line := range recipe.RecipeIngredients {
		names = append(names, line.Ingredient.Name)
	}
	return &models.RecipeStats{
		ID:             recipe.ID,
		Name:           recipe.Name,
		AuthorID:       recipe.AuthorID,
		FavoritesCount: favorites,
		Ingredients:    strings.Join(names, ", "),
	}, nil
}

func (s *recipeService) ownedRecipe(ctx context.Context, actor Actor, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Recipe not found")
		}
		return nil, err
	}
	if !actor.CanModify(recipe.AuthorID) {
		return nil, permissionError("You do not have permission to modify this recipe.")
	}
	return &recipe, nil
}

// discardImage is best effort; a failed delete only leaves an orphaned file
func (s *recipeService) discardImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		log.WithError(err).WithField("image", ref).Warn("Failed to delete image")
	}
}

// checkReferences verifies every tag and ingredient id exists
func checkReferences(tx *gorm.DB, in RecipeInput) error {
	var count int64
	if err := tx.Model(&models.Tag{}).Where("id IN ?", in.TagIDs).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(in.TagIDs) {
		return notFoundError("tags", "Tag does not exist.")
	}

	ids := make([]uint, len(in.Ingredients))
	for i, line := range in.Ingredients {
		ids[i] = line.IngredientID
	}
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return notFoundError("ingredients", "Ingredient does not exist.")
	}
	return nil
}

// replaceTags makes the recipe's tag set exactly tagIDs, leaving unchanged rows in place
func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	var current []uint
	if err := tx.Model(&models.RecipeTag{}).Where("recipe_id = ?", recipeID).Pluck("tag_id", &current).Error; err != nil {
		return err
	}

	wanted := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		wanted[id] = true
	}
	existing := make(map[uint]bool, len(current))
	var removed []uint
	for _, id := range current {
		existing[id] = true
		if !wanted[id] {
			removed = append(removed, id)
		}
	}
	var added []models.RecipeTag
	for _, id := range tagIDs {
		if !existing[id] {
			added = append(added, models.RecipeTag{RecipeID: recipeID, TagID: id})
		}
	}

	if len(removed) > 0 {
		if err := tx.Where("recipe_id = ? AND tag_id IN ?", recipeID, removed).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
	}
	if len(added) > 0 {
		if err := tx.Create(&added).Error; err != nil {
			if isDuplicate(err) {
				return validationError("tags", "Tags must be unique.")
			}
			return err
		}
	}
	return nil
}

// replaceIngredients deletes every ingredient line of the recipe and bulk inserts lines
func replaceIngredients(tx *gorm.DB, recipeID uint, lines []IngredientLine) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: line.IngredientID, Amount: line.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		if isDuplicate(err) {
			return validationError("ingredients", "Ingredients must be unique.")
		}
		return err
	}
	return nil
}
