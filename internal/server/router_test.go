package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret       = "test-jwt-secret-key-32-characters"
	testClientID     = "foodgram-web"
	testClientSecret = "foodgram-web-secret"
	testPassword     = "str0ng-Passw0rd"
	pixelPNG         = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
)

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	media  string
}

func newTestApp(t *testing.T, limiter *middleware.RateLimiter) *testApp {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory()
	require.NoError(t, err)

	media := t.TempDir()
	images, err := storage.NewLocalImageStore(media, "/media")
	require.NoError(t, err)

	svc := NewServices(db, images, 16)
	_, err = svc.Clients.EnsureClient(context.Background(), testClientID, testClientSecret, "")
	require.NoError(t, err)

	oauth := auth.NewOAuthService(db, auth.Config{
		JWTSecret:    testSecret,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		TokenTTL:     time.Hour,
	}, svc.Users)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := NewRouter(Dependencies{
		DB:          db,
		Services:    svc,
		OAuth:       oauth,
		JWTSecret:   []byte(testSecret),
		MediaPath:   "/media",
		MediaRoot:   media,
		AuthLimiter: limiter,
		Logger:      logger,
	})
	return &testApp{t: t, db: db, router: router, media: media}
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(username string) {
	w := a.do(http.MethodPost, "/api/users", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"password":   testPassword,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testApp) login(username string) string {
	w := a.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.AuthToken)
	return resp.AuthToken
}

func (a *testApp) promote(username string) {
	require.NoError(a.t, a.db.Model(&models.User{}).Where("username = ?", username).Update("is_staff", true).Error)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])

	w = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foodgram_http_requests_total")

	w = app.do(http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeWorkflow(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")
	app.register("guest")
	app.promote("chef")
	chef := app.login("chef")
	guest := app.login("guest")

	w := app.do(http.MethodPost, "/api/admin/tags", chef, map[string]string{"name": "Breakfast", "color": "#e26c2d", "slug": "breakfast"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tag := decode[models.Tag](t, w)
	assert.Equal(t, "#E26C2D", tag.Color)

	w = app.do(http.MethodPost, "/api/admin/ingredients", chef, map[string]string{"name": "flour", "measurement_unit": "g"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	flour := decode[models.Ingredient](t, w)

	// non staff users cannot manage reference data
	w = app.do(http.MethodPost, "/api/admin/tags", guest, map[string]string{"name": "Lunch", "color": "#49B64E", "slug": "lunch"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	recipe := map[string]interface{}{
		"ingredients":  []map[string]interface{}{{"id": flour.ID, "amount": 200}},
		"tags":         []uint{tag.ID},
		"image":        pixelPNG,
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 15,
	}
	w = app.do(http.MethodPost, "/api/recipes", chef, recipe)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.RecipeView](t, w)
	assert.Equal(t, "Pancakes", created.Name)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, 200, created.Ingredients[0].Amount)
	assert.True(t, strings.HasPrefix(created.Image, "/media/recipes/"))

	w = app.do(http.MethodGet, created.Image, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	recipePath := fmt.Sprintf("/api/recipes/%d", created.ID)

	w = app.do(http.MethodPost, recipePath+"/favorite", guest, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = app.do(http.MethodPost, recipePath+"/favorite", guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, recipePath, guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.RecipeView](t, w).IsFavorited)

	w = app.do(http.MethodGet, recipePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.RecipeView](t, w).IsFavorited)

	w = app.do(http.MethodGet, "/api/recipes?is_favorited=1&tags=breakfast", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.RecipeView](t, w), 1)

	// guest cannot edit someone else's recipe
	recipe["image"] = ""
	w = app.do(http.MethodPatch, recipePath, guest, recipe)
	assert.Equal(t, http.StatusForbidden, w.Code)

	recipe["ingredients"] = []map[string]interface{}{{"id": flour.ID, "amount": 300}}
	w = app.do(http.MethodPatch, recipePath, chef, recipe)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, created.Image, decode[models.RecipeView](t, w).Image)

	w = app.do(http.MethodGet, "/api/recipes/download_shopping_cart", guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrShoppingCartEmpty, decode[models.APIError](t, w).Code)

	w = app.do(http.MethodPost, recipePath+"/shopping_cart", guest, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(http.MethodGet, "/api/recipes/download_shopping_cart", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=guest_shopping_list.txt", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Shopping list:\n- flour (g) - 300", w.Body.String())

	w = app.do(http.MethodGet, fmt.Sprintf("/api/admin/recipes/%d/stats", created.ID), chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.RecipeStats](t, w)
	assert.Equal(t, int64(1), stats.FavoritesCount)
	assert.Equal(t, "flour", stats.Ingredients)

	w = app.do(http.MethodDelete, recipePath, chef, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(http.MethodGet, recipePath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeValidationErrors(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")
	token := app.login("chef")

	w := app.do(http.MethodPost, "/api/recipes", "", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/api/recipes", token, map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrValidationFailed, decode[models.APIError](t, w).Code)

	w = app.do(http.MethodPost, "/api/recipes", token, map[string]interface{}{
		"ingredients":  []map[string]interface{}{{"id": 1, "amount": 1}},
		"tags":         []uint{1},
		"image":        "data:image/png;base64,bm90IGFuIGltYWdl",
		"name":         "Soup",
		"text":         "Boil.",
		"cooking_time": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrImageInvalid, decode[models.APIError](t, w).Code)

	w = app.do(http.MethodPost, "/api/recipes", token, map[string]interface{}{
		"ingredients":  []map[string]interface{}{{"id": 99, "amount": 1}},
		"tags":         []uint{42},
		"image":        pixelPNG,
		"name":         "Soup",
		"text":         "Boil.",
		"cooking_time": 5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/api/recipes/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsersAndSubscriptions(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("reader")
	app.register("writer")
	reader := app.login("reader")

	w := app.do(http.MethodPost, "/api/users", "", map[string]string{
		"email": "reader@example.com", "username": "other", "first_name": "A", "last_name": "B", "password": testPassword,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/users/me", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.UserView](t, w)
	assert.Equal(t, "reader", me.Username)

	w = app.do(http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]models.UserView](t, w)
	require.Len(t, users, 2)
	writerID := users[1].ID

	w = app.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", me.ID), reader, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe?recipes_limit=2", writerID), reader, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode[models.SubscriptionView](t, w)
	assert.True(t, sub.IsSubscribed)
	assert.Empty(t, sub.Recipes)

	w = app.do(http.MethodGet, fmt.Sprintf("/api/users/%d", writerID), reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.UserView](t, w).IsSubscribed)

	w = app.do(http.MethodGet, "/api/users/subscriptions", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.SubscriptionView](t, w), 1)

	w = app.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", writerID), reader, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", writerID), reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/api/users/set_password", reader, map[string]string{
		"current_password": "wrong-password", "new_password": "n3w-Passw0rd!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(http.MethodPost, "/api/users/set_password", reader, map[string]string{
		"current_password": testPassword, "new_password": "n3w-Passw0rd!",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")
	token := app.login("chef")

	w := app.do(http.MethodPost, "/api/auth/token/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": "chef@example.com", "password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOAuthTokenEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {testClientID},
		"client_secret": {testClientSecret},
		"username":      {"chef@example.com"},
		"password":      {testPassword},
	}
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	access, _ := decode[map[string]interface{}](t, w)["access_token"].(string)
	require.NotEmpty(t, access)

	w = app.do(http.MethodGet, "/api/users/me", access, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	app := newTestApp(t, limiter)

	body := map[string]string{"email": "nobody@example.com", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodPost, "/api/auth/token/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodPost, "/api/auth/token/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodPost, "/api/auth/token/login", "", body).Code)

	// reads are not throttled
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/tags", "", nil).Code)
}

func TestAdminClients(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")
	app.promote("chef")
	token := app.login("chef")

	w := app.do(http.MethodPost, "/api/admin/clients", token, map[string]string{"domain": "https://foodgram.example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	creds := decode[map[string]string](t, w)
	assert.NotEmpty(t, creds["client_secret"])

	w = app.do(http.MethodGet, "/api/admin/clients/"+creds["client_id"], token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://foodgram.example.com", decode[map[string]string](t, w)["domain"])

	w = app.do(http.MethodGet, "/api/admin/clients/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOversizedRecipeBody(t *testing.T) {
	app := newTestApp(t, nil)
	app.register("chef")
	token := app.login("chef")

	raw, err := json.Marshal(map[string]interface{}{
		"name":         "Huge",
		"text":         "too big",
		"cooking_time": 5,
		"image":        "data:image/png;base64," + strings.Repeat("A", MaxRequestBodySize),
	})
	require.NoError(t, err)

	send := func(unknownLength bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/recipes", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if unknownLength {
			req.ContentLength = -1
		}
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)
		return w
	}

	for _, unknownLength := range []bool{false, true} {
		w := send(unknownLength)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
		assert.Equal(t, models.ErrRequestTooLarge, decode[models.APIError](t, w).Code)
	}

	var count int64
	require.NoError(t, app.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}
