package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Handler handles token requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// LoginRequest represents the token login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the token login response
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

const invalidCredentials = "Unable to log in with provided credentials."

// Login issues a token for valid email and password
// @Summary Obtain a token
// @Description Authenticate with email and password to receive a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string][]string "Invalid credentials"
// @Router /auth/token/login/ [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Respond(c, apierror.FromBinding(err))
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		apierror.Respond(c, apierror.Field("non_field_errors", invalidCredentials))
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		apierror.Respond(c, apierror.Field("non_field_errors", invalidCredentials))
		return
	}

	token, err := GenerateToken(user.ID, user.Email)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout revokes the token used for the request
// @Summary Revoke the current token
// @Tags auth
// @Success 204
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /auth/token/logout/ [post]
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := GetClaims(c)
	if !ok {
		apierror.Respond(c, apierror.ErrNotAuthenticated)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		// Expired entries can never match a valid token again
		if err := tx.Where("expires_at < ?", time.Now()).Delete(&models.RevokedToken{}).Error; err != nil {
			return err
		}
		revoked := models.RevokedToken{TokenID: claims.ID}
		if claims.ExpiresAt != nil {
			revoked.ExpiresAt = claims.ExpiresAt.Time
		}
		return tx.Create(&revoked).Error
	})
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers token routes. guards run before login, e.g. a rate limiter.
// The group must already run Authenticate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	login := append(append([]gin.HandlerFunc{}, guards...), h.Login)
	rg.POST("/token/login/", login...)
	rg.POST("/token/logout/", RequireAuth(), h.Logout)
}
