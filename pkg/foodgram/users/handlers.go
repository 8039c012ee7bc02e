// Package users serves registration, profiles, password changes and
// author subscriptions.
package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
)

// Handler handles user-related requests
type Handler struct {
	db      *gorm.DB
	storage media.Storage

	// PageSize is the default list page size
	PageSize int
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, storage media.Storage) *Handler {
	if err := validation.RegisterBinding(); err != nil {
		logging.Error().Err(err).Msg("failed to register validation rules")
	}
	return &Handler{db: db, storage: storage, PageSize: pagination.DefaultPageSize}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,max=150"`
}

// RegisterResponse is the created account
type RegisterResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SetPasswordRequest represents the password change request body
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,max=150"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// UserPage is a page of users
type UserPage = pagination.Page[serializers.UserResponse]

// SubscriptionPage is a page of followed authors
type SubscriptionPage = pagination.Page[serializers.SubscriptionResponse]

func (h *Handler) serializer(c *gin.Context) *serializers.Serializer {
	return serializers.ForRequest(c, h.db, h.storage)
}

// findUser loads the user named by the :id parameter.
func (h *Handler) findUser(c *gin.Context) (models.User, error) {
	var user models.User
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return user, apierror.ErrNotFound
	}
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, apierror.ErrNotFound
		}
		return user, err
	}
	return user, nil
}

// Register creates an account
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Router /users/ [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	// Check if email or username is taken
	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		apierror.Respond(c, apierror.Field("email", "A user with that email already exists."))
		return
	}
	if err := h.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		apierror.Respond(c, apierror.Field("username", "A user with that username already exists."))
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashedPassword,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			apierror.Respond(c, apierror.Field("non_field_errors", "A user with that email or username already exists."))
			return
		}
		apierror.Respond(c, err)
		return
	}

	logging.Info().Uint("user_id", user.ID).Msg("user registered")
	c.JSON(http.StatusCreated, RegisterResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// List returns a page of users ordered by username
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} UserPage
// @Failure 404 {object} map[string]string "Invalid page"
// @Router /users/ [get]
func (h *Handler) List(c *gin.Context) {
	page := pagination.FromRequest(c, h.PageSize)

	var count int64
	if err := h.db.Model(&models.User{}).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := page.Check(count); err != nil {
		apierror.Detail(c, http.StatusNotFound, "Invalid page.")
		return
	}

	var users []models.User
	if err := page.Apply(h.db.Order("username, id")).Find(&users).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	results, err := h.serializer(c).Users(users)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, page, count, results))
}

// Get returns a user profile
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} serializers.UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /users/{id}/ [get]
func (h *Handler) Get(c *gin.Context) {
	user, err := h.findUser(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	h.respondUser(c, user)
}

// Me returns the caller's profile
// @Summary Get the current user
// @Tags users
// @Produce json
// @Success 200 {object} serializers.UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /users/me/ [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Respond(c, apierror.ErrNotFound)
			return
		}
		apierror.Respond(c, err)
		return
	}
	h.respondUser(c, user)
}

func (h *Handler) respondUser(c *gin.Context, user models.User) {
	response, err := h.serializer(c).User(user)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SetPassword changes the caller's password
// @Summary Change password
// @Tags users
// @Accept json
// @Param request body SetPasswordRequest true "Current and new password"
// @Success 204
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /users/set_password/ [post]
func (h *Handler) SetPassword(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		apierror.Respond(c, apierror.ErrNotFound)
		return
	}
	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		apierror.Respond(c, apierror.Field("current_password", "Invalid password."))
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.db.Model(&user).Update("password_hash", hashedPassword).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers user routes. The group must already run auth.Authenticate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/", h.List)
	rg.POST("/users/", h.Register)
	rg.GET("/users/me/", auth.RequireAuth(), h.Me)
	rg.POST("/users/set_password/", auth.RequireAuth(), h.SetPassword)
	rg.GET("/users/subscriptions/", auth.RequireAuth(), h.Subscriptions)

	rg.GET("/users/:id/", auth.RequireAuth(), h.Get)
	rg.POST("/users/:id/subscribe/", auth.RequireAuth(), h.Subscribe)
	rg.DELETE("/users/:id/subscribe/", auth.RequireAuth(), h.Unsubscribe)
}
