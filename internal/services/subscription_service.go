package services

import (
	"context"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionService manages who follows whom.
// recipesLimit caps the nested recipe previews; zero or less means all of them.
type SubscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*models.SubscriptionView, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	List(ctx context.Context, userID uint, recipesLimit int) ([]models.SubscriptionView, error)
}

type subscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) SubscriptionService {
	return &subscriptionService{db: db}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*models.SubscriptionView, error) {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "User not found")
		}
		return nil, err
	}
	if userID == authorID {
		return nil, validationError("author", "You cannot subscribe to yourself.")
	}

	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, validationError("author", "You are already subscribed to this author.")
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&sub).Error; err != nil {
		if isDuplicate(err) {
			return nil, validationError("author", "You are already subscribed to this author.")
		}
		return nil, err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "author_id": authorID}).Info("Subscribed")

	views, err := s.subscriptionViews(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundError("author", "Subscription not found")
	}
	log.WithFields(logrus.Fields{"user_id": userID, "author_id": authorID}).Info("Unsubscribed")
	return nil
}

func (s *subscriptionService) List(ctx context.Context, userID uint, recipesLimit int) ([]models.SubscriptionView, error) {
	var authors []models.User
	err := s.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id").
		Find(&authors).Error
	if err != nil {
		return nil, err
	}
	return s.subscriptionViews(ctx, authors, recipesLimit)
}

// subscriptionViews assumes the viewer follows every author passed in
func (s *subscriptionService) subscriptionViews(ctx context.Context, authors []models.User, recipesLimit int) ([]models.SubscriptionView, error) {
	views := make([]models.SubscriptionView, 0, len(authors))
	if len(authors) == 0 {
		return views, nil
	}

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[uint]int64, len(counts))
	for _, c := range counts {
		totals[c.AuthorID] = c.Total
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("author_id IN ?", ids).Order("id DESC").Find(&recipes).Error; err != nil {
		return nil, err
	}
	previews := make(map[uint][]models.RecipePreview, len(authors))
	for _, r := range recipes {
		owner := *r.AuthorID
		if recipesLimit > 0 && len(previews[owner]) >= recipesLimit {
			continue
		}
		previews[owner] = append(previews[owner], recipePreview(r))
	}

	for _, a := range authors {
		list := previews[a.ID]
		if list == nil {
			list = []models.RecipePreview{}
		}
		views = append(views, models.SubscriptionView{
			UserView:     userView(a, true),
			RecipesCount: totals[a.ID],
			Recipes:      list,
		})
	}
	return views, nil
}
