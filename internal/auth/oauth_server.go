package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	oauth2errors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/manage"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Config controls token signing and the first-party client used by the login endpoint
type Config struct {
	JWTSecret    string
	ClientID     string
	ClientSecret string
	TokenTTL     time.Duration
}

type OAuthService struct {
	server *server.Server
	tokens *GormTokenStore
	cfg    Config
}

func NewOAuthService(db *gorm.DB, cfg Config, users services.UserService) *OAuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	manager := manage.NewDefaultManager()
	manager.SetPasswordTokenCfg(&manage.Config{
		AccessTokenExp:    cfg.TokenTTL,
		RefreshTokenExp:   7 * cfg.TokenTTL,
		IsGenerateRefresh: true,
	})
	manager.SetRefreshTokenCfg(&manage.RefreshingConfig{
		AccessTokenExp:     cfg.TokenTTL,
		RefreshTokenExp:    7 * cfg.TokenTTL,
		IsGenerateRefresh:  true,
		IsRemoveAccess:     true,
		IsRemoveRefreshing: true,
	})

	// Use JWT for access tokens
	manager.MapAccessGenerate(NewCustomJWTAccessGenerate([]byte(cfg.JWTSecret), jwt.SigningMethodHS512, db))

	tokenStore := NewGormTokenStore(db)
	manager.MustTokenStorage(tokenStore, nil)
	manager.MapClientStorage(NewGormClientStore(db))

	srv := server.NewDefaultServer(manager)
	srv.SetAllowedGrantType(oauth2.PasswordCredentials, oauth2.Refreshing)
	srv.SetClientInfoHandler(server.ClientFormHandler)
	srv.SetPasswordAuthorizationHandler(func(ctx context.Context, clientID, username, password string) (string, error) {
		user, err := users.Authenticate(ctx, username, password)
		if err != nil {
			if services.KindOf(err) == services.KindUnauthorized {
				// an empty user id makes the server answer invalid_grant
				return "", nil
			}
			return "", err
		}
		return strconv.FormatUint(uint64(user.ID), 10), nil
	})
	srv.SetInternalErrorHandler(func(err error) *oauth2errors.Response {
		log.WithError(err).Error("OAuth2 internal error")
		return nil
	})

	return &OAuthService{
		server: srv,
		tokens: tokenStore,
		cfg:    cfg,
	}
}

func (o *OAuthService) GetServer() *server.Server {
	return o.server
}

// Tokens exposes the store the auth middleware checks for revocation
func (o *OAuthService) Tokens() *GormTokenStore {
	return o.tokens
}

// IssueToken creates a password-grant token for an already authenticated user
func (o *OAuthService) IssueToken(ctx context.Context, user *models.User) (oauth2.TokenInfo, error) {
	return o.server.Manager.GenerateAccessToken(ctx, oauth2.PasswordCredentials, &oauth2.TokenGenerateRequest{
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		UserID:       strconv.FormatUint(uint64(user.ID), 10),
	})
}

// RevokeToken removes an access token so it is rejected from now on
func (o *OAuthService) RevokeToken(ctx context.Context, access string) error {
	if err := o.server.Manager.RemoveAccessToken(ctx, access); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// PruneExpired deletes tokens that can no longer be used or refreshed
func (o *OAuthService) PruneExpired(ctx context.Context) (int64, error) {
	removed, err := o.tokens.RemoveExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	log.WithField("removed", removed).Info("Expired tokens pruned")
	return removed, nil
}
