package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oauth2models "github.com/go-oauth2/oauth2/v4/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-key-32-characters")

type fakeTokenStore map[string]bool

func (f fakeTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	if !f[access] {
		return nil, errors.New("record not found")
	}
	return &oauth2models.Token{Access: access}, nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"aud":  "foodgram-web",
		"uid":  "7",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "authenticated": ok, "admin": IsAdmin(c)})
	})
	router.GET("/", handlers...)
	return router
}

func doGet(router http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOAuth2Auth(t *testing.T) {
	valid := signToken(t, validClaims(models.RoleUser))
	revoked := signToken(t, validClaims(models.RoleAdmin))

	expiredClaims := validClaims(models.RoleUser)
	expiredClaims["exp"] = time.Now().Add(-time.Minute).Unix()
	expired := signToken(t, expiredClaims)
	noRoleClaims := validClaims(models.RoleUser)
	delete(noRoleClaims, "role")
	noRole := signToken(t, noRoleClaims)
	badRole := signToken(t, validClaims("superuser"))
	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims(models.RoleUser)).
		SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	store := fakeTokenStore{valid: true, expired: true, noRole: true, badRole: true, otherKey: true}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + valid, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", status: http.StatusUnauthorized},
		{name: "revoked token", header: "Bearer " + revoked, status: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong signing key", header: "Bearer " + otherKey, status: http.StatusUnauthorized},
		{name: "missing role", header: "Bearer " + noRole, status: http.StatusUnauthorized},
		{name: "unknown role", header: "Bearer " + badRole, status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newRouter(OAuth2Auth(testSecret, store)), tt.header)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestOAuth2AuthSetsContext(t *testing.T) {
	token := signToken(t, validClaims(models.RoleAdmin))
	router := newRouter(OAuth2Auth(testSecret, fakeTokenStore{token: true}))

	w := doGet(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"authenticated":true,"admin":true}`, w.Body.String())
}

func TestOptionalOAuth2Auth(t *testing.T) {
	token := signToken(t, validClaims(models.RoleUser))
	router := newRouter(OptionalOAuth2Auth(testSecret, fakeTokenStore{token: true}))

	w := doGet(router, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"authenticated":false,"admin":false}`, w.Body.String())

	w = doGet(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"authenticated":true,"admin":false}`, w.Body.String())

	w = doGet(router, "Bearer broken")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	admin := signToken(t, validClaims(models.RoleAdmin))
	user := signToken(t, validClaims(models.RoleUser))
	store := fakeTokenStore{admin: true, user: true}
	router := newRouter(OAuth2Auth(testSecret, store), RequireRole(models.RoleAdmin))

	assert.Equal(t, http.StatusOK, doGet(router, "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, doGet(router, "Bearer "+user).Code)

	anonymous := newRouter(RequireRole(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, doGet(anonymous, "").Code)
}

func TestRequestID(t *testing.T) {
	router := newRouter(RequestID())

	w := doGet(router, "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := newRouter(RequestID(), RequestLogger(logger))

	doGet(router, "")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/", entry.Data["route"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.NotEmpty(t, entry.Data["request_id"])
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	router := newRouter(RateLimit(limiter))

	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
	assert.Equal(t, http.StatusOK, doGet(router, "").Code)
	w := doGet(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// another client has its own allowance
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	limiter.Allow("10.0.0.1")
	limiter.cleanup(time.Now().Add(time.Second))
	assert.Empty(t, limiter.limiters)
	limiter.Stop()
	limiter.Stop()
}

func TestMaxBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reached := false
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/", func(c *gin.Context) {
		reached = true
		_, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(body string, unknownLength bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if unknownLength {
			req.ContentLength = -1
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post("small", false).Code)
	assert.True(t, reached)

	reached = false
	w := post(strings.Repeat("x", 17), false)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, reached)
	assert.Contains(t, w.Body.String(), models.ErrRequestTooLarge)

	// without a declared length the read itself is cut off
	w = post(strings.Repeat("x", 17), true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.True(t, reached)
}
