package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultReferenceCacheSize = 1024

// ReferenceService serves tags and ingredients.
// Ingredient rows are never mutated once created, so ingredient lookups by id
// are cached. Tags are re-imported by slug and are always read from the database.
type ReferenceService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	// ListIngredients filters by a case-insensitive name prefix when namePrefix is set
	ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error
}

type referenceService struct {
	db    *gorm.DB
	cache *lru.Cache
}

// NewReferenceService creates a ReferenceService with an LRU of cacheSize entries
func NewReferenceService(db *gorm.DB, cacheSize int) ReferenceService {
	if cacheSize <= 0 {
		cacheSize = defaultReferenceCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &referenceService{db: db, cache: cache}
}

func ingredientKey(id uint) string { return fmt.Sprintf("ingredient:%d", id) }

func (s *referenceService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *referenceService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Tag not found")
		}
		return nil, err
	}
	return &tag, nil
}

func (s *referenceService) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name").Order("id")
	if prefix := strings.TrimSpace(namePrefix); prefix != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}
	ingredients := []models.Ingredient{}
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *referenceService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	cached, ok := s.cache.Get(ingredientKey(id))
	metrics.RecordCacheLookup(ok)
	if ok {
		ingredient := cached.(models.Ingredient)
		return &ingredient, nil
	}
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "Ingredient not found")
		}
		return nil, err
	}
	s.cache.Add(ingredientKey(id), ingredient)
	return &ingredient, nil
}

func (s *referenceService) CreateTag(ctx context.Context, tag *models.Tag) error {
	tag.Color = strings.ToUpper(tag.Color)
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isDuplicate(err) {
			return validationError("tag", "A tag with that name, color or slug already exists.")
		}
		return err
	}
	log.WithFields(logrus.Fields{"tag_id": tag.ID, "slug": tag.Slug}).Info("Tag created")
	return nil
}

func (s *referenceService) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"ingredient_id": ingredient.ID, "name": ingredient.Name}).Debug("Ingredient created")
	return nil
}

// escapeLike escapes LIKE wildcards so user input only matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
