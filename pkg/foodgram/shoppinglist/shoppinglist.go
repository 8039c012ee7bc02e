// Package shoppinglist totals the ingredients of the recipes in a user's
// shopping cart and renders them as a PDF.
package shoppinglist

import (
	"fmt"
	"time"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Item is one ingredient with its amount summed over every recipe in the cart
type Item struct {
	IngredientID uint
	Name         string
	Unit         string
	Total        float64
}

// Aggregate returns the cart's ingredients, one per ingredient, ordered by name.
func Aggregate(db *gorm.DB, userID uint) ([]Item, error) {
	var items []Item
	err := db.Model(&models.ShoppingCart{}).
		Select("ingredients.id AS ingredient_id, ingredients.name AS name, " +
			"ingredients.measurement_unit AS unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.id").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shopping list: %w", err)
	}
	return items, nil
}

// Line formats an item, truncating the total to an integer.
func Line(item Item) string {
	return fmt.Sprintf("☑  %s (%s) - %d", item.Name, item.Unit, int64(item.Total))
}

// Lines formats every item.
func Lines(items []Item) []string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = Line(item)
	}
	return lines
}

// DateFormat renders dates as DD-MM-YY.
const DateFormat = "02-01-06"

// Filename is the attachment name for a list rendered on date.
func Filename(date time.Time) string {
	return "shopping_cart_" + date.Format(DateFormat) + ".pdf"
}

// Title heads the document.
func Title(date time.Time) string {
	return "Shopping list for " + date.Format(DateFormat)
}
