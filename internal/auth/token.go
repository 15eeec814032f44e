package auth

import (
	"github.com/gin-gonic/gin"
)

// HandleToken handles the OAuth2 token endpoint for the password and refresh_token grants
// @Summary Token Endpoint
// @Description Obtain an access token with user credentials (password grant) or renew it (refresh_token grant)
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Grant type: password or refresh_token"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string true "Client Secret"
// @Param username formData string false "User email (password grant)"
// @Param password formData string false "User password (password grant)"
// @Param refresh_token formData string false "Refresh token (refresh_token grant)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	// the server writes both success and error responses itself
	if err := o.server.HandleTokenRequest(c.Writer, c.Request); err != nil {
		log.WithError(err).Warn("Failed to write token response")
	}
}
