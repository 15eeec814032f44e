package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

// ReferenceController serves tags and ingredients
type ReferenceController interface {
	ListTags(c *gin.Context)
	GetTag(c *gin.Context)
	ListIngredients(c *gin.Context)
	GetIngredient(c *gin.Context)
	CreateTag(c *gin.Context)
	CreateIngredient(c *gin.Context)
}

type referenceController struct {
	service services.ReferenceService
}

// NewReferenceController creates a new instance of ReferenceController
func NewReferenceController(service services.ReferenceService) ReferenceController {
	return &referenceController{service: service}
}

// TagRequest is the admin payload for a new tag
type TagRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Color string `json:"color" binding:"required,hexcolor,len=7"`
	Slug  string `json:"slug" binding:"required,max=200,slug"`
}

// IngredientRequest is the admin payload for a new ingredient
type IngredientRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=200"`
}

// ListTags godoc
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /api/tags [get]
func (rc *referenceController) ListTags(c *gin.Context) {
	tags, err := rc.service.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTag godoc
// @Summary Get tag by ID
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.APIError
// @Router /api/tags/{id} [get]
func (rc *referenceController) GetTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag, err := rc.service.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// ListIngredients godoc
// @Summary List ingredients
// @Description Ingredients ordered by name, optionally filtered by a case-insensitive name prefix
// @Tags ingredients
// @Produce json
// @Param name query string false "Name prefix"
// @Success 200 {array} models.Ingredient
// @Router /api/ingredients [get]
func (rc *referenceController) ListIngredients(c *gin.Context) {
	ingredients, err := rc.service.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GetIngredient godoc
// @Summary Get ingredient by ID
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} models.Ingredient
// @Failure 404 {object} models.APIError
// @Router /api/ingredients/{id} [get]
func (rc *referenceController) GetIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ingredient, err := rc.service.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// CreateTag godoc
// @Summary Create a tag
// @Tags admin
// @Accept json
// @Produce json
// @Param tag body TagRequest true "Tag"
// @Success 201 {object} models.Tag
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/tags [post]
func (rc *referenceController) CreateTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	tag := models.Tag{Name: req.Name, Color: req.Color, Slug: req.Slug}
	if err := rc.service.CreateTag(c.Request.Context(), &tag); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// CreateIngredient godoc
// @Summary Create an ingredient
// @Tags admin
// @Accept json
// @Produce json
// @Param ingredient body IngredientRequest true "Ingredient"
// @Success 201 {object} models.Ingredient
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/ingredients [post]
func (rc *referenceController) CreateIngredient(c *gin.Context) {
	var req IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	ingredient := models.Ingredient{Name: req.Name, MeasurementUnit: req.MeasurementUnit}
	if err := rc.service.CreateIngredient(c.Request.Context(), &ingredient); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}
