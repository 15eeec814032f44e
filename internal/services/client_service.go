package services

import (
	"context"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ClientService manages the OAuth clients allowed to request tokens
type ClientService interface {
	// EnsureClient registers the client or rotates its secret and domain
	EnsureClient(ctx context.Context, id, secret, domain string) (*models.OAuthClient, error)
	GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error)
}

type clientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) ClientService {
	return &clientService{db: db}
}

func (s *clientService) EnsureClient(ctx context.Context, id, secret, domain string) (*models.OAuthClient, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	client, err := s.GetClientByID(ctx, id)
	switch {
	case err == nil:
		client.Secret = string(hash)
		client.Domain = domain
		if err := s.db.WithContext(ctx).Save(client).Error; err != nil {
			return nil, err
		}
		log.WithField("client_id", id).Debug("OAuth client refreshed")
	case KindOf(err) == KindNotFound:
		client = &models.OAuthClient{ID: id, Secret: string(hash), Name: id, Domain: domain}
		if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
			return nil, err
		}
		log.WithField("client_id", id).Info("OAuth client registered")
	default:
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("client_id", "Client not found")
		}
		return nil, err
	}
	return &client, nil
}
