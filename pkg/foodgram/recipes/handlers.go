// Package recipes serves recipe CRUD, the favorite and shopping cart
// toggles, and the shopping list download.
package recipes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/serializers"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles recipe-related requests
type Handler struct {
	db        *gorm.DB
	storage   media.Storage
	validator *validation.Validator

	// PageSize is the default list page size
	PageSize int
	// FontPath is an optional TTF font for the shopping list
	FontPath string
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, storage media.Storage) *Handler {
	return &Handler{
		db:        db,
		storage:   storage,
		validator: validation.New(),
		PageSize:  pagination.DefaultPageSize,
	}
}

// RecipePage is a page of recipes
type RecipePage = pagination.Page[serializers.RecipeResponse]

func (h *Handler) serializer(c *gin.Context) *serializers.Serializer {
	return serializers.ForRequest(c, h.db, h.storage)
}

// findRecipe loads the recipe named by the :id parameter.
func (h *Handler) findRecipe(c *gin.Context, query *gorm.DB) (models.Recipe, error) {
	var recipe models.Recipe
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return recipe, apierror.ErrNotFound
	}
	if err := query.First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recipe, apierror.ErrNotFound
		}
		return recipe, err
	}
	return recipe, nil
}

// findOwnRecipe loads the recipe and checks the viewer wrote it.
func (h *Handler) findOwnRecipe(c *gin.Context) (models.Recipe, error) {
	recipe, err := h.findRecipe(c, serializers.RecipeQuery(h.db))
	if err != nil {
		return recipe, err
	}
	if !auth.CurrentViewer(c).Is(recipe.AuthorID) {
		return recipe, apierror.ErrPermissionDenied
	}
	return recipe, nil
}

// respondRecipe reloads the recipe and writes its full representation.
func (h *Handler) respondRecipe(c *gin.Context, status int, id uint) {
	var recipe models.Recipe
	if err := serializers.RecipeQuery(h.db).First(&recipe, id).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	response, err := h.serializer(c).Recipe(recipe)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(status, response)
}

// List returns a page of recipes, newest first
// @Summary List recipes
// @Description Paginated recipes with optional filters
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param author query int false "Author ID"
// @Param tags query []string false "Tag slugs" collectionFormat(multi)
// @Param is_favorited query int false "1 for favorites, 0 for the rest"
// @Param is_in_shopping_cart query int false "1 for cart recipes, 0 for the rest"
// @Success 200 {object} RecipePage
// @Failure 400 {object} map[string][]string "Invalid filter"
// @Failure 404 {object} map[string]string "Invalid page"
// @Router /recipes/ [get]
func (h *Handler) List(c *gin.Context) {
	filter, err := ParseFilter(c.Request.URL.Query())
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	viewer := auth.CurrentViewer(c)
	page := pagination.FromRequest(c, h.PageSize)

	var count int64
	if err := filter.Apply(h.db, h.db.Model(&models.Recipe{}), viewer).Count(&count).Error; err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := page.Check(count); err != nil {
		apierror.Detail(c, http.StatusNotFound, "Invalid page.")
		return
	}

	var recipes []models.Recipe
	query := ordered(filter.Apply(h.db, serializers.RecipeQuery(h.db), viewer))
	if err := page.Apply(query).Find(&recipes).Error; err != nil {
		apierror.Respond(c, err)
		return
	}

	results, err := h.serializer(c).Recipes(recipes)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, page, count, results))
}

// Get returns a recipe by ID
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} serializers.RecipeResponse
// @Failure 404 {object} map[string]string "Not found"
// @Router /recipes/{id}/ [get]
func (h *Handler) Get(c *gin.Context) {
	recipe, err := h.findRecipe(c, serializers.RecipeQuery(h.db))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	response, err := h.serializer(c).Recipe(recipe)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Create publishes a recipe authored by the caller
// @Summary Create a recipe
// @Tags recipes
// @Accept json,mpfd
// @Produce json
// @Param request body RecipeRequest true "Recipe"
// @Success 201 {object} serializers.RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Unknown ingredient"
// @Security BearerAuth
// @Router /recipes/ [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	w, err := parseWrite(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.validate(w, true); err != nil {
		apierror.Respond(c, err)
		return
	}
	tags, err := h.resolveTags(w.Tags)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.checkIngredients(w.Ingredients); err != nil {
		apierror.Respond(c, err)
		return
	}

	image, err := h.storage.Save(w.upload)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	recipe := models.Recipe{
		AuthorID:    userID,
		Name:        w.Name,
		Image:       image,
		Text:        w.Text,
		CookingTime: w.CookingTime,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		rows := ingredientRows(recipe.ID, w.Ingredients)
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		h.removeImage(image)
		apierror.Respond(c, err)
		return
	}

	metrics.RecipesWritten.WithLabelValues("create").Inc()
	h.respondRecipe(c, http.StatusCreated, recipe.ID)
}

// Update changes the fields present in the body
// @Summary Update a recipe
// @Description Partial update by the recipe's author. Tags, when present, replace the set; ingredients update or add lines.
// @Tags recipes
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body RecipeRequest true "Fields to change"
// @Success 200 {object} serializers.RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/ [patch]
func (h *Handler) Update(c *gin.Context) {
	recipe, err := h.findOwnRecipe(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	w, err := parseWrite(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if err := h.validate(w, false); err != nil {
		apierror.Respond(c, err)
		return
	}

	var tags []models.Tag
	if w.has("tags") {
		if tags, err = h.resolveTags(w.Tags); err != nil {
			apierror.Respond(c, err)
			return
		}
	}
	if w.has("ingredients") {
		if err := h.checkIngredients(w.Ingredients); err != nil {
			apierror.Respond(c, err)
			return
		}
	}

	updates := map[string]interface{}{}
	if w.has("name") {
		updates["name"] = w.Name
	}
	if w.has("text") {
		updates["text"] = w.Text
	}
	if w.has("cooking_time") {
		updates["cooking_time"] = w.CookingTime
	}
	// Updates writes the new values back into recipe
	oldImage := recipe.Image
	var image string
	if w.upload != nil {
		if image, err = h.storage.Save(w.upload); err != nil {
			apierror.Respond(c, err)
			return
		}
		updates["image"] = image
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
				return err
			}
		}
		if w.has("tags") {
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		if w.has("ingredients") {
			rows := ingredientRows(recipe.ID, w.Ingredients)
			return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "recipe_id"}, {Name: "ingredient_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"amount"}),
			}).Create(&rows).Error
		}
		return nil
	})
	if err != nil {
		h.removeImage(image)
		apierror.Respond(c, err)
		return
	}
	if image != "" {
		h.removeImage(oldImage)
	}

	metrics.RecipesWritten.WithLabelValues("update").Inc()
	h.respondRecipe(c, http.StatusOK, recipe.ID)
}

// Delete removes a recipe with its tag links, ingredient lines, favorites,
// cart entries and image
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/ [delete]
func (h *Handler) Delete(c *gin.Context) {
	recipe, err := h.findOwnRecipe(c)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		dependents := []interface{}{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCart{}}
		for _, model := range dependents {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipe.ID).Error
	})
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	h.removeImage(recipe.Image)

	metrics.RecipesWritten.WithLabelValues("delete").Inc()
	c.Status(http.StatusNoContent)
}

// removeImage deletes a stored file. Failures leave an orphan file and are only logged.
func (h *Handler) removeImage(rel string) {
	if rel == "" {
		return
	}
	if err := h.storage.Delete(rel); err != nil {
		logging.Warn().Err(err).Str("image", rel).Msg("failed to remove recipe image")
	}
}

// RegisterRoutes registers recipe routes. The group must already run auth.Authenticate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/", h.List)
	rg.POST("/recipes/", auth.RequireAuth(), h.Create)
	rg.GET("/recipes/download_shopping_cart/", auth.RequireAuth(), h.DownloadShoppingCart)

	rg.GET("/recipes/:id/", h.Get)
	rg.PATCH("/recipes/:id/", auth.RequireAuth(), h.Update)
	rg.DELETE("/recipes/:id/", auth.RequireAuth(), h.Delete)

	rg.POST("/recipes/:id/favorite/", auth.RequireAuth(), h.AddFavorite)
	rg.DELETE("/recipes/:id/favorite/", auth.RequireAuth(), h.RemoveFavorite)
	rg.POST("/recipes/:id/shopping_cart/", auth.RequireAuth(), h.AddToShoppingCart)
	rg.DELETE("/recipes/:id/shopping_cart/", auth.RequireAuth(), h.RemoveFromShoppingCart)
}
