package ingredients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
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
	r.HandleMethodNotAllowed = true
	handler := NewHandler(db)
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func createTestIngredients(t *testing.T, db *gorm.DB) []models.Ingredient {
	ingredients := []models.Ingredient{
		{Name: "сахар", MeasurementUnit: "г"},
		{Name: "Сахарная пудра", MeasurementUnit: "г"},
		{Name: "соль", MeasurementUnit: "г"},
		{Name: "apple", MeasurementUnit: "шт."},
	}
	for i := range ingredients {
		if err := db.Create(&ingredients[i]).Error; err != nil {
			t.Fatalf("Failed to create ingredient: %v", err)
		}
	}
	return ingredients
}

func list(t *testing.T, router *gin.Engine, name string) []serializers.IngredientResponse {
	path := "/api/ingredients/"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var response []serializers.IngredientResponse
	json.Unmarshal(w.Body.Bytes(), &response)
	return response
}

func TestListIngredients(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestIngredients(t, db)

	response := list(t, router, "")
	if len(response) != 4 {
		t.Fatalf("Expected 4 ingredients, got %d", len(response))
	}
	if response[0].Name != "apple" {
		t.Errorf("Expected 'apple' first, got '%s'", response[0].Name)
	}
	if response[0].MeasurementUnit != "шт." {
		t.Errorf("Expected unit 'шт.', got '%s'", response[0].MeasurementUnit)
	}
}

func TestListIngredientsPrefixIsCaseSensitive(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestIngredients(t, db)

	response := list(t, router, "са")
	if len(response) != 1 || response[0].Name != "сахар" {
		t.Errorf("Expected only 'сахар', got %v", response)
	}

	response = list(t, router, "Са")
	if len(response) != 1 || response[0].Name != "Сахарная пудра" {
		t.Errorf("Expected only 'Сахарная пудра', got %v", response)
	}

	response = list(t, router, "пудра")
	if len(response) != 0 {
		t.Errorf("Expected no match for a non-prefix, got %v", response)
	}
}

func TestGetIngredient(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	ingredients := createTestIngredients(t, db)

	req, _ := http.NewRequest("GET", "/api/ingredients/"+strconv.FormatUint(uint64(ingredients[2].ID), 10)+"/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var response serializers.IngredientResponse
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.Name != "соль" {
		t.Errorf("Expected 'соль', got '%s'", response.Name)
	}
}

func TestGetIngredientNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/ingredients/42/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestIngredientsAreReadOnly(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("POST", "/api/ingredients/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}
