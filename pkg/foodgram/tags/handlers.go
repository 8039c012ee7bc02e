package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// List returns every tag ordered by name
// @Summary List tags
// @Description Get all tags, unpaginated
// @Tags tags
// @Produce json
// @Success 200 {array} serializers.TagResponse
// @Router /tags/ [get]
func (h *Handler) List(c *gin.Context) {
	var tags []models.Tag
	if err := h.db.Order("name, id").Find(&tags).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	response := make([]serializers.TagResponse, len(tags))
	for i, t := range tags {
		response[i] = serializers.Tag(t)
	}
	c.JSON(http.StatusOK, response)
}

// Get returns a tag by ID
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} serializers.TagResponse
// @Failure 404 {object} map[string]string "Not found"
// @Router /tags/{id}/ [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apierror.Respond(c, apierror.ErrNotFound)
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Respond(c, apierror.ErrNotFound)
			return
		}
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, serializers.Tag(tag))
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags/", h.List)
	rg.GET("/tags/:id/", h.Get)
}
