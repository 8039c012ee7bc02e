package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	api := r.Group("/api", Authenticate(db))
	handler.RegisterRoutes(api.Group("/auth"))
	api.GET("/whoami", func(c *gin.Context) {
		id, ok := CurrentViewer(c).UserID()
		c.JSON(http.StatusOK, gin.H{"id": id, "authenticated": ok})
	})
	api.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := HashPassword("password123")
	user := models.User{
		Email:        email,
		Username:     "tester",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func login(t *testing.T, router *gin.Engine, email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(LoginRequest{Email: email, Password: password})
	req, _ := http.NewRequest("POST", "/api/auth/token/login/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}
	if claims.ID == "" {
		t.Error("Expected token id to be set")
	}
}

func TestInvalidToken(t *testing.T) {
	if _, err := ValidateToken("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "foodgram",
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(getJWTSecret())

	if _, err := ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "cook@example.com")

	resp := login(t, router, "cook@example.com", "password123")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var token TokenResponse
	json.Unmarshal(resp.Body.Bytes(), &token)
	if token.AuthToken == "" {
		t.Error("Expected auth token in response")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "cook@example.com")

	for _, tc := range []struct{ email, password string }{
		{"cook@example.com", "wrongpassword"},
		{"nobody@example.com", "password123"},
	} {
		resp := login(t, router, tc.email, tc.password)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", tc.email, resp.Code)
		}
		var body map[string][]string
		json.Unmarshal(resp.Body.Bytes(), &body)
		if len(body["non_field_errors"]) != 1 {
			t.Errorf("Expected non_field_errors, got %s", resp.Body.String())
		}
	}
}

func TestAuthenticateAnonymousAndUser(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "cook@example.com")

	req, _ := http.NewRequest("GET", "/api/whoami", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var body struct {
		ID            uint `json:"id"`
		Authenticated bool `json:"authenticated"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Authenticated {
		t.Error("Expected anonymous viewer without Authorization header")
	}

	token, _ := GenerateToken(user.ID, user.Email)
	for _, scheme := range []string{"Bearer ", "Token "} {
		req, _ = http.NewRequest("GET", "/api/whoami", nil)
		req.Header.Set("Authorization", scheme+token)
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		json.Unmarshal(resp.Body.Bytes(), &body)
		if !body.Authenticated || body.ID != user.ID {
			t.Errorf("Expected authenticated viewer %d with %q scheme, got %+v", user.ID, scheme, body)
		}
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	for _, header := range []string{"Bearer nope", "Basic abc", "garbage"} {
		req, _ := http.NewRequest("GET", "/api/whoami", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401 for %q, got %d", header, resp.Code)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/private", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "cook@example.com")
	token, _ := GenerateToken(user.ID, user.Email)

	req, _ := http.NewRequest("POST", "/api/auth/token/logout/", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	req, _ = http.NewRequest("GET", "/api/private", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected revoked token to get 401, got %d", resp.Code)
	}
}

func TestLogoutRequiresAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("POST", "/api/auth/token/logout/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestViewer(t *testing.T) {
	anon := Anonymous()
	if anon.IsAuthenticated() || anon.Is(0) {
		t.Error("Anonymous viewer must not be authenticated")
	}
	u := User(5)
	if !u.IsAuthenticated() || !u.Is(5) || u.Is(6) {
		t.Error("User viewer should match its own id only")
	}
}
