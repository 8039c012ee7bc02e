package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestImportIngredients(t *testing.T) {
	db := setupTestDB(t)
	data := "\ufeffname,measurement_unit\nабрикосовое варенье,г\nсоль, г\n\"мука, пшеничная\",кг\n"

	n, err := Import(db, ModelIngredients, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var ingredients []models.Ingredient
	require.NoError(t, db.Order("id").Find(&ingredients).Error)
	require.Len(t, ingredients, 3)
	assert.Equal(t, "г", ingredients[1].MeasurementUnit)
	assert.Equal(t, "мука, пшеничная", ingredients[2].Name)
}

func TestImportTags(t *testing.T) {
	db := setupTestDB(t)
	data := "name,color,slug\nЗавтрак,#E26C2D,\nLunch,#49B64E,midday\n"

	n, err := Import(db, ModelTags, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var tags []models.Tag
	require.NoError(t, db.Order("id").Find(&tags).Error)
	require.Len(t, tags, 2)
	assert.Equal(t, "zavtrak", tags[0].Slug)
	assert.Equal(t, "midday", tags[1].Slug)
}

func TestImportInvalidRowImportsNothing(t *testing.T) {
	db := setupTestDB(t)
	data := "name,color\nBreakfast,#E26C2D\nDinner,red\n"

	_, err := Import(db, ModelTags, strings.NewReader(data))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr), "expected RowError, got %v", err)
	assert.Equal(t, 3, rowErr.Row)
	assert.Contains(t, rowErr.Fields, "color")

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	assert.Zero(t, count)
}

func TestImportDuplicateRollsBack(t *testing.T) {
	db := setupTestDB(t)
	data := "name,color\nBreakfast,#E26C2D\nBreakfast,#49B64E\n"

	_, err := Import(db, ModelTags, strings.NewReader(data))
	require.Error(t, err)

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	assert.Zero(t, count)
}

func TestImportRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)

	_, err := Import(db, "recipes", strings.NewReader("name\n"))
	assert.True(t, errors.Is(err, ErrUnknownModel))

	_, err = Import(db, ModelIngredients, strings.NewReader("name\nsalt\n"))
	assert.ErrorContains(t, err, "measurement_unit")

	_, err = Import(db, ModelIngredients, strings.NewReader(""))
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	db := setupTestDB(t)
	path := filepath.Join(t.TempDir(), "ingredients.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,measurement_unit\nsalt,g\n"), 0644))

	n, err := ImportFile(db, ModelIngredients, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ImportFile(db, ModelIngredients, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
