package services

import (
	"context"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegisterInput carries the sign-up payload
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// UserService manages accounts and their credentials
type UserService interface {
	// Register creates a user with a hashed password
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	// Authenticate returns the user matching email and password
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	// GetUserByEmail retrieves a user by login email
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID retrieves a user by id
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	// GetUserView projects a user relative to the viewer
	GetUserView(ctx context.Context, id uint, viewerID *uint) (*models.UserView, error)
	// ListUsers projects every user relative to the viewer, ordered by id
	ListUsers(ctx context.Context, viewerID *uint, limit int) ([]models.UserView, error)
	// SetPassword replaces the password after checking the current one
	SetPassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
}

type userService struct {
	db *gorm.DB
}

// NewUserService creates a new instance of UserService
func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationError("email", "A user with that email already exists.")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationError("username", "A user with that username already exists.")
	}

	user := &models.User{
		Email:     email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
	}
	if err := user.HashPassword(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, validationError("email", "A user with that email or username already exists.")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, &Error{Kind: KindUnauthorized, Message: "Unable to log in with provided credentials."}
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, &Error{Kind: KindUnauthorized, Message: "Unable to log in with provided credentials."}
	}
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("email", "User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("id", "User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *userService) GetUserView(ctx context.Context, id uint, viewerID *uint) (*models.UserView, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := projectUsers(ctx, s.db, []models.User{*user}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *userService) ListUsers(ctx context.Context, viewerID *uint, limit int) ([]models.UserView, error) {
	query := s.db.WithContext(ctx).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return projectUsers(ctx, s.db, users, viewerID)
}

func (s *userService) SetPassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return validationError("current_password", "Invalid current password.")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", user.Password).Error; err != nil {
		return err
	}
	log.WithField("user_id", user.ID).Info("Password changed")
	return nil
}
