package ingredients

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
	"gorm.io/gorm"
)

// Handler handles ingredient-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new ingredients handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// withNamePrefix filters on a case-sensitive name prefix. LIKE is case
// insensitive on sqlite, so the prefix is compared with substr instead.
func withNamePrefix(query *gorm.DB, prefix string) *gorm.DB {
	if prefix == "" {
		return query
	}
	return query.Where("substr(name, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
}

// List returns ingredients, optionally filtered by name prefix
// @Summary List ingredients
// @Description Get all ingredients ordered by name, unpaginated
// @Tags ingredients
// @Produce json
// @Param name query string false "Case-sensitive name prefix"
// @Success 200 {array} serializers.IngredientResponse
// @Router /ingredients/ [get]
func (h *Handler) List(c *gin.Context) {
	var ingredients []models.Ingredient
	query := withNamePrefix(h.db.Model(&models.Ingredient{}), c.Query("name"))
	if err := query.Order("name, id").Find(&ingredients).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	response := make([]serializers.IngredientResponse, len(ingredients))
	for i, ing := range ingredients {
		response[i] = serializers.Ingredient(ing)
	}
	c.JSON(http.StatusOK, response)
}

// Get returns an ingredient by ID
// @Summary Get an ingredient
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} serializers.IngredientResponse
// @Failure 404 {object} map[string]string "Not found"
// @Router /ingredients/{id}/ [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apierror.Respond(c, apierror.ErrNotFound)
		return
	}

	var ingredient models.Ingredient
	if err := h.db.First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Respond(c, apierror.ErrNotFound)
			return
		}
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, serializers.Ingredient(ingredient))
}

// RegisterRoutes registers ingredient routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ingredients/", h.List)
	rg.GET("/ingredients/:id/", h.Get)
}
