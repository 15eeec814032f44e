package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret       = "test-jwt-secret-key-32-characters"
	testClientID     = "foodgram-web"
	testClientSecret = "foodgram-web-secret"
	testPassword     = "str0ng-Passw0rd"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	_, err = services.NewClientService(db).EnsureClient(context.Background(), testClientID, testClientSecret, "http://localhost")
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	user := &models.User{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
		IsStaff:  staff,
	}
	require.NoError(t, user.HashPassword())
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestOAuthService(db *gorm.DB) *OAuthService {
	return NewOAuthService(db, Config{
		JWTSecret:    testSecret,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		TokenTTL:     time.Hour,
	}, services.NewUserService(db))
}

func postToken(t *testing.T, svc *OAuthService, form url.Values) (int, map[string]interface{}) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/oauth/token", svc.HandleToken)

	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestOAuthServerInitialization(t *testing.T) {
	db := setupTestDB(t)

	oauthService := newTestOAuthService(db)
	assert.NotNil(t, oauthService)
	assert.NotNil(t, oauthService.GetServer())
	assert.NotNil(t, oauthService.Tokens())
}

func TestPasswordGrant(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := newTestOAuthService(db)

	status, body := postToken(t, svc, url.Values{
		"grant_type":    {"password"},
		"username":      {"alice@example.com"},
		"password":      {testPassword},
		"client_id":     {testClientID},
		"client_secret": {testClientSecret},
	})
	require.Equal(t, http.StatusOK, status, body)

	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)
	assert.NotEmpty(t, body["refresh_token"])

	claims := parseClaims(t, access)
	assert.Equal(t, "1", claims["uid"])
	assert.Equal(t, models.RoleUser, claims["role"])
	assert.Equal(t, testClientID, claims["aud"])

	stored, err := svc.Tokens().GetByAccess(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "1", stored.GetUserID())
	assert.Equal(t, testClientID, stored.GetClientID())
	assert.Equal(t, uint(1), user.ID)
}

func TestPasswordGrantRejections(t *testing.T) {
	db := setupTestDB(t)
	createUser(t, db, "alice", false)
	svc := newTestOAuthService(db)

	tests := []struct {
		name   string
		form   url.Values
		errors []string
	}{
		{
			name: "wrong password",
			form: url.Values{
				"grant_type": {"password"}, "username": {"alice@example.com"}, "password": {"nope"},
				"client_id": {testClientID}, "client_secret": {testClientSecret},
			},
			errors: []string{"invalid_grant"},
		},
		{
			name: "wrong client secret",
			form: url.Values{
				"grant_type": {"password"}, "username": {"alice@example.com"}, "password": {testPassword},
				"client_id": {testClientID}, "client_secret": {"nope"},
			},
			errors: []string{"invalid_client"},
		},
		{
			name: "client credentials not allowed",
			form: url.Values{
				"grant_type": {"client_credentials"}, "client_id": {testClientID}, "client_secret": {testClientSecret},
			},
			errors: []string{"unsupported_grant_type", "unauthorized_client"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postToken(t, svc, tt.form)
			assert.NotEqual(t, http.StatusOK, status)
			assert.Contains(t, tt.errors, body["error"])
		})
	}
}

func TestRefreshGrantRotatesTokens(t *testing.T) {
	db := setupTestDB(t)
	createUser(t, db, "alice", true)
	svc := newTestOAuthService(db)

	_, first := postToken(t, svc, url.Values{
		"grant_type": {"password"}, "username": {"alice@example.com"}, "password": {testPassword},
		"client_id": {testClientID}, "client_secret": {testClientSecret},
	})
	oldAccess := first["access_token"].(string)

	status, second := postToken(t, svc, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {first["refresh_token"].(string)},
		"client_id":     {testClientID},
		"client_secret": {testClientSecret},
	})
	require.Equal(t, http.StatusOK, status, second)

	newAccess := second["access_token"].(string)
	assert.NotEqual(t, oldAccess, newAccess)
	assert.Equal(t, models.RoleAdmin, parseClaims(t, newAccess)["role"])

	_, err := svc.Tokens().GetByAccess(context.Background(), oldAccess)
	assert.Error(t, err)
}

func TestIssueAndRevokeToken(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := newTestOAuthService(db)
	ctx := context.Background()

	first, err := svc.IssueToken(ctx, user)
	require.NoError(t, err)
	second, err := svc.IssueToken(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, first.GetAccess(), second.GetAccess())

	require.NoError(t, svc.RevokeToken(ctx, first.GetAccess()))
	_, err = svc.Tokens().GetByAccess(ctx, first.GetAccess())
	assert.Error(t, err)

	_, err = svc.Tokens().GetByAccess(ctx, second.GetAccess())
	assert.NoError(t, err)

	// revoking twice is harmless
	assert.NoError(t, svc.RevokeToken(ctx, first.GetAccess()))
}

func TestPruneExpiredTokens(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := newTestOAuthService(db)
	ctx := context.Background()

	live, err := svc.IssueToken(ctx, user)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.OAuthToken{
		ClientID:    testClientID,
		UserID:      "1",
		AccessToken: "expired-access",
		ExpiresAt:   past,
	}).Error)

	removed, err := svc.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = svc.Tokens().GetByAccess(ctx, live.GetAccess())
	assert.NoError(t, err)
}

func TestClientStoreIntegration(t *testing.T) {
	db := setupTestDB(t)

	clientStore := NewGormClientStore(db)
	client, err := clientStore.GetByID(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, testClientID, client.GetID())

	_, err = clientStore.GetByID(context.Background(), "unknown")
	assert.Error(t, err)
}
