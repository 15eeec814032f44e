package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindPermission:   http.StatusForbidden,
	services.KindConflict:     http.StatusBadRequest,
	services.KindUnauthorized: http.StatusUnauthorized,
}

var kindCode = map[services.ErrorKind]string{
	services.KindValidation:   models.ErrValidationFailed,
	services.KindNotFound:     models.ErrNotFound,
	services.KindPermission:   models.ErrForbidden,
	services.KindConflict:     models.ErrConflict,
	services.KindUnauthorized: models.ErrUnauthorized,
}

// respondError renders a service error. Anything that is not a domain error is
// logged and reported as a 500 without its text.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrInvalidImage) {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrImageInvalid, err.Error(), map[string]interface{}{
			"field": "image",
		}))
		return
	}

	var domainErr *services.Error
	if !errors.As(err, &domainErr) {
		log.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(middleware.ContextRequestIDKey),
		}).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Internal server error"))
		return
	}

	code := kindCode[domainErr.Kind]
	if errors.Is(err, services.ErrEmptyCart) {
		code = models.ErrShoppingCartEmpty
	}
	var details map[string]interface{}
	if domainErr.Field != "" {
		details = map[string]interface{}{"field": domainErr.Field}
	}
	c.JSON(kindStatus[domainErr.Kind], models.NewAPIError(code, domainErr.Message, details))
}

// respondBindingError renders a binding or validator failure
func respondBindingError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, models.NewAPIError(models.ErrRequestTooLarge, "Request body is too large.", map[string]interface{}{
			"limit": tooLarge.Limit,
		}))
		return
	}
	c.JSON(http.StatusBadRequest, validation.ToAPIError(err))
}

// pathID parses a positive numeric path parameter, writing a 404 when it is not one
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "Not found.", map[string]interface{}{
			"field": name,
		}))
		return 0, false
	}
	return uint(id), true
}

// viewer returns the authenticated user id, or nil for anonymous requests
func viewer(c *gin.Context) *uint {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}

// actor returns the authenticated caller. Routes using it sit behind OAuth2Auth,
// the 401 is a fallback for a missing middleware.
func actor(c *gin.Context) (services.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Authentication credentials were not provided."))
		return services.Actor{}, false
	}
	return services.Actor{UserID: id, IsAdmin: middleware.IsAdmin(c)}, true
}

// queryInt reads a non-negative integer query parameter; absent or invalid values give def
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// queryBool accepts 1/true/yes
func queryBool(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}

func validationFieldError(field, message string) models.APIError {
	return models.NewAPIError(models.ErrValidationFailed, message, map[string]interface{}{"field": field})
}
