package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyViewer is the key for the resolved Viewer in gin context
	ContextKeyViewer = "viewer"
	// ContextKeyClaims is the key for the validated token claims in gin context
	ContextKeyClaims = "claims"
)

// tokenFromHeader extracts the token from "Bearer <token>" or "Token <token>".
// ok is false when the header is present but malformed.
func tokenFromHeader(header string) (token string, present, ok bool) {
	if header == "" {
		return "", false, true
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", true, false
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return strings.TrimSpace(parts[1]), true, true
	default:
		return "", true, false
	}
}

// IsRevoked reports whether the token id was invalidated by logout.
func IsRevoked(db *gorm.DB, tokenID string) (bool, error) {
	var count int64
	if err := db.Model(&models.RevokedToken{}).Where("token_id = ?", tokenID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Authenticate resolves the request's Viewer. Requests without an
// Authorization header continue as anonymous; a header that does not carry
// a valid, unrevoked token is rejected.
func Authenticate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present, ok := tokenFromHeader(c.GetHeader("Authorization"))
		if !present {
			c.Set(ContextKeyViewer, Anonymous())
			c.Next()
			return
		}
		if !ok {
			apierror.Detail(c, http.StatusUnauthorized, "Invalid authorization header format.")
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				apierror.Detail(c, http.StatusUnauthorized, "Token has expired.")
			} else {
				apierror.Detail(c, http.StatusUnauthorized, "Invalid token.")
			}
			return
		}

		revoked, err := IsRevoked(db, claims.ID)
		if err != nil {
			apierror.Respond(c, err)
			return
		}
		if revoked {
			apierror.Detail(c, http.StatusUnauthorized, "Invalid token.")
			return
		}

		c.Set(ContextKeyViewer, User(claims.UserID))
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireAuth rejects anonymous viewers with 401. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentViewer(c).IsAuthenticated() {
			apierror.Respond(c, apierror.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

// CurrentViewer returns the viewer resolved by Authenticate, or an anonymous one
func CurrentViewer(c *gin.Context) Viewer {
	v, exists := c.Get(ContextKeyViewer)
	if !exists {
		return Anonymous()
	}
	return v.(Viewer)
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	return CurrentViewer(c).UserID()
}

// GetClaims returns the validated token claims from the gin context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	return claims.(*Claims), true
}
