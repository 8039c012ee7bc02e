package recipes

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/membership"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/shoppinglist"
)

const (
	msgFavoriteExists = "Recipe is already in favorites."
	msgFavoriteAbsent = "Recipe is not in favorites."
	msgCartExists     = "Recipe is already in the shopping cart."
	msgCartAbsent     = "Recipe is not in the shopping cart."
)

// addRecipe puts the :id recipe into the caller's set and answers with its short form.
func addRecipe[T any](h *Handler, c *gin.Context, store *membership.Store[T], existsMsg string) {
	userID, _ := auth.GetUserID(c)
	recipe, err := h.findRecipe(c, h.db)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := store.Add(userID, recipe.ID); err != nil {
		if errors.Is(err, membership.ErrExists) {
			metrics.RecordMembership(store.Name(), "add", "exists")
			apierror.Respond(c, apierror.State(existsMsg))
			return
		}
		apierror.Respond(c, err)
		return
	}

	metrics.RecordMembership(store.Name(), "add", "ok")
	c.JSON(http.StatusCreated, h.serializer(c).RecipeShort(recipe))
}

// removeRecipe takes the :id recipe out of the caller's set.
func removeRecipe[T any](h *Handler, c *gin.Context, store *membership.Store[T], absentMsg string) {
	userID, _ := auth.GetUserID(c)
	recipe, err := h.findRecipe(c, h.db)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	if err := store.Remove(userID, recipe.ID); err != nil {
		if errors.Is(err, membership.ErrNotMember) {
			metrics.RecordMembership(store.Name(), "remove", "absent")
			apierror.Respond(c, apierror.State(absentMsg))
			return
		}
		apierror.Respond(c, err)
		return
	}

	metrics.RecordMembership(store.Name(), "remove", "ok")
	c.Status(http.StatusNoContent)
}

// AddFavorite marks a recipe as favorite
// @Summary Add a recipe to favorites
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} serializers.RecipeShortResponse
// @Failure 400 {object} map[string]string "Already in favorites"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite/ [post]
func (h *Handler) AddFavorite(c *gin.Context) {
	addRecipe(h, c, membership.Favorites(h.db), msgFavoriteExists)
}

// RemoveFavorite unmarks a favorite recipe
// @Summary Remove a recipe from favorites
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not in favorites"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite/ [delete]
func (h *Handler) RemoveFavorite(c *gin.Context) {
	removeRecipe(h, c, membership.Favorites(h.db), msgFavoriteAbsent)
}

// AddToShoppingCart adds a recipe to the shopping cart
// @Summary Add a recipe to the shopping cart
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} serializers.RecipeShortResponse
// @Failure 400 {object} map[string]string "Already in the cart"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart/ [post]
func (h *Handler) AddToShoppingCart(c *gin.Context) {
	addRecipe(h, c, membership.ShoppingCarts(h.db), msgCartExists)
}

// RemoveFromShoppingCart removes a recipe from the shopping cart
// @Summary Remove a recipe from the shopping cart
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not in the cart"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart/ [delete]
func (h *Handler) RemoveFromShoppingCart(c *gin.Context) {
	removeRecipe(h, c, membership.ShoppingCarts(h.db), msgCartAbsent)
}

// DownloadShoppingCart renders the caller's shopping list as a PDF
// @Summary Download the shopping list
// @Description Ingredients of every recipe in the cart, summed per ingredient
// @Tags recipes
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /recipes/download_shopping_cart/ [get]
func (h *Handler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	items, err := shoppinglist.Aggregate(h.db, userID)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	renderer := shoppinglist.Renderer{FontPath: h.FontPath}
	if err := renderer.Render(&buf, shoppinglist.Lines(items), now); err != nil {
		apierror.Respond(c, fmt.Errorf("render shopping list: %w", err))
		return
	}

	metrics.ShoppingListDownloads.Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shoppinglist.Filename(now)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
