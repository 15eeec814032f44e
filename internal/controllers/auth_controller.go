package controllers

import (
	"context"
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
)

// TokenIssuer issues and revokes access tokens for authenticated users
type TokenIssuer interface {
	IssueToken(ctx context.Context, user *models.User) (oauth2.TokenInfo, error)
	RevokeToken(ctx context.Context, access string) error
}

type AuthController struct {
	userService services.UserService
	tokens      TokenIssuer
}

func NewAuthController(userService services.UserService, tokens TokenIssuer) *AuthController {
	return &AuthController{
		userService: userService,
		tokens:      tokens,
	}
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token
type LoginResponse struct {
	AuthToken string `json:"auth_token"`
}

// Login godoc
// @Summary Obtain a token
// @Description Exchange email and password for a bearer access token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Router /api/auth/token/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := ac.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ac.tokens.IssueToken(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	log.WithField("user_id", user.ID).Info("Token issued")
	c.JSON(http.StatusOK, LoginResponse{AuthToken: token.GetAccess()})
}

// Logout godoc
// @Summary Revoke the current token
// @Tags auth
// @Success 204
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/auth/token/logout [post]
func (ac *AuthController) Logout(c *gin.Context) {
	access := c.GetString(middleware.ContextAccessToken)
	if access == "" {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Authentication credentials were not provided."))
		return
	}
	if err := ac.tokens.RevokeToken(c.Request.Context(), access); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
