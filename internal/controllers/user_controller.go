package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

// UserController handles accounts and subscriptions
type UserController interface {
	Register(c *gin.Context)
	ListUsers(c *gin.Context)
	GetUser(c *gin.Context)
	Me(c *gin.Context)
	SetPassword(c *gin.Context)
	ListSubscriptions(c *gin.Context)
	Subscribe(c *gin.Context)
	Unsubscribe(c *gin.Context)
}

type userController struct {
	users         services.UserService
	subscriptions services.SubscriptionService
}

// NewUserController creates a new instance of UserController
func NewUserController(users services.UserService, subscriptions services.SubscriptionService) UserController {
	return &userController{users: users, subscriptions: subscriptions}
}

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// RegisterResponse is the created account without credentials
type RegisterResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SetPasswordRequest changes the caller's password
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

// Register godoc
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Account"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Router /api/users [post]
func (uc *userController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if req.Username == "me" {
		c.JSON(http.StatusBadRequest, validationFieldError("username", "This username is reserved."))
		return
	}

	user, err := uc.users.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisterResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Maximum number of users"
// @Success 200 {array} models.UserView
// @Router /api/users [get]
func (uc *userController) ListUsers(c *gin.Context) {
	users, err := uc.users.ListUsers(c.Request.Context(), viewer(c), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserView
// @Failure 404 {object} models.APIError
// @Router /api/users/{id} [get]
func (uc *userController) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := uc.users.GetUserView(c.Request.Context(), id, viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} models.UserView
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/users/me [get]
func (uc *userController) Me(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	user, err := uc.users.GetUserView(c.Request.Context(), caller.UserID, &caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetPassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Param passwords body SetPasswordRequest true "Current and new password"
// @Success 204
// @Failure 400 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/set_password [post]
func (uc *userController) SetPassword(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := uc.users.SetPassword(c.Request.Context(), caller.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions godoc
// @Summary Followed authors
// @Description Authors the caller follows with a preview of their newest recipes
// @Tags subscriptions
// @Produce json
// @Param recipes_limit query int false "Maximum recipes per author"
// @Success 200 {array} models.SubscriptionView
// @Security BearerAuth
// @Router /api/users/subscriptions [get]
func (uc *userController) ListSubscriptions(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	subs, err := uc.subscriptions.List(c.Request.Context(), caller.UserID, queryInt(c, "recipes_limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// Subscribe godoc
// @Summary Follow an author
// @Tags subscriptions
// @Produce json
// @Param id path int true "Author user ID"
// @Param recipes_limit query int false "Maximum recipes in the preview"
// @Success 201 {object} models.SubscriptionView
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/{id}/subscribe [post]
func (uc *userController) Subscribe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := uc.subscriptions.Subscribe(c.Request.Context(), caller.UserID, authorID, queryInt(c, "recipes_limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe godoc
// @Summary Unfollow an author
// @Tags subscriptions
// @Param id path int true "Author user ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/{id}/subscribe [delete]
func (uc *userController) Unsubscribe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := uc.subscriptions.Unsubscribe(c.Request.Context(), caller.UserID, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
