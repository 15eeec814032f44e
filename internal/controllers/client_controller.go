package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClientController struct {
	clientService services.ClientService
}

func NewClientController(clientService services.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

// ClientRequest registers a frontend allowed to use the OAuth2 token endpoint
type ClientRequest struct {
	Domain string `json:"domain" binding:"omitempty,url"`
}

// ClientCredentials is returned once; only the bcrypt hash of the secret is stored
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Domain       string `json:"domain,omitempty"`
}

// ClientResponse describes a registered client without its secret
type ClientResponse struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
}

// CreateClient godoc
// @Summary Create OAuth2 client
// @Description Register a new OAuth2 client for the password and refresh_token grants
// @Tags admin
// @Accept json
// @Produce json
// @Param client body ClientRequest true "Client details"
// @Success 201 {object} ClientCredentials "Client created with client_id and client_secret"
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	id := uuid.NewString()
	secret := uuid.NewString()
	client, err := cc.clientService.EnsureClient(c.Request.Context(), id, secret, req.Domain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ClientCredentials{
		ClientID:     client.ID,
		ClientSecret: secret,
		Domain:       client.Domain,
	})
}

// GetClient godoc
// @Summary Get OAuth2 client
// @Tags admin
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} ClientResponse
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/clients/{id} [get]
func (cc *ClientController) GetClient(c *gin.Context) {
	client, err := cc.clientService.GetClientByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClientResponse{ClientID: client.ID, Name: client.Name, Domain: client.Domain})
}
