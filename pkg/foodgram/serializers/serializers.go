// Package serializers maps stored entities to their API representations.
// Computed fields (is_subscribed, is_favorited, is_in_shopping_cart) are
// resolved against the request's viewer with one query per set for a whole
// list, and are always false for anonymous viewers.
package serializers

import (
	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/membership"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"gorm.io/gorm"
)

// Serializer renders entities for one viewer
type Serializer struct {
	db      *gorm.DB
	storage media.Storage
	viewer  auth.Viewer
	baseURL string
}

// New creates a serializer. baseURL prefixes image paths, e.g. http://host.
func New(db *gorm.DB, storage media.Storage, viewer auth.Viewer, baseURL string) *Serializer {
	return &Serializer{db: db, storage: storage, viewer: viewer, baseURL: baseURL}
}

// ForRequest creates a serializer for the request's viewer and host.
func ForRequest(c *gin.Context, db *gorm.DB, storage media.Storage) *Serializer {
	return New(db, storage, auth.CurrentViewer(c), pagination.BaseURL(c.Request))
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// IngredientResponse represents an ingredient in API responses
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// RecipeIngredientResponse is an ingredient line flattened with its amount
type RecipeIngredientResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

// RecipeResponse represents a recipe in API responses
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// RecipeShortResponse is the compact recipe form used by toggles and subscriptions
type RecipeShortResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionResponse is a followed author with their latest recipes
type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeShortResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

func Tag(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func Ingredient(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// RecipeQuery preloads everything Recipe and Recipes render.
func RecipeQuery(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

// ImageURL returns the absolute URL of a stored image.
func (s *Serializer) ImageURL(rel string) string {
	if rel == "" {
		return ""
	}
	if s.storage == nil {
		return rel
	}
	return s.baseURL + s.storage.URL(rel)
}

// memberSet returns the targets of ids in the viewer's set, empty for anonymous viewers.
func memberSet[T any](s *Serializer, store *membership.Store[T], ids []uint) (map[uint]bool, error) {
	userID, ok := s.viewer.UserID()
	if !ok {
		return map[uint]bool{}, nil
	}
	return store.Members(userID, ids)
}

func userToResponse(u models.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// Users renders users with is_subscribed for the viewer.
func (s *Serializer) Users(users []models.User) ([]UserResponse, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := memberSet(s, membership.Subscriptions(s.db), ids)
	if err != nil {
		return nil, err
	}

	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = userToResponse(u, subscribed[u.ID])
	}
	return out, nil
}

// User renders one user.
func (s *Serializer) User(u models.User) (UserResponse, error) {
	out, err := s.Users([]models.User{u})
	if err != nil {
		return UserResponse{}, err
	}
	return out[0], nil
}

// Recipes renders recipes loaded with RecipeQuery.
func (s *Serializer) Recipes(recipes []models.Recipe) ([]RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorIDs = append(authorIDs, r.AuthorID)
	}

	favorited, err := memberSet(s, membership.Favorites(s.db), recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := memberSet(s, membership.ShoppingCarts(s.db), recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := memberSet(s, membership.Subscriptions(s.db), authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		tags := make([]TagResponse, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = Tag(t)
		}
		ingredients := make([]RecipeIngredientResponse, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = RecipeIngredientResponse{
				ID:              ri.Ingredient.ID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}

		out[i] = RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           userToResponse(r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            s.ImageURL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

// Recipe renders one recipe loaded with RecipeQuery.
func (s *Serializer) Recipe(r models.Recipe) (RecipeResponse, error) {
	out, err := s.Recipes([]models.Recipe{r})
	if err != nil {
		return RecipeResponse{}, err
	}
	return out[0], nil
}

// RecipeShort renders the compact form.
func (s *Serializer) RecipeShort(r models.Recipe) RecipeShortResponse {
	return RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       s.ImageURL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// NoLimit embeds every recipe of an author.
const NoLimit = -1

// Subscriptions renders followed authors with up to recipesLimit of their
// newest recipes each (NoLimit for all) and their total recipe count.
func (s *Serializer) Subscriptions(authors []models.User, recipesLimit int) ([]SubscriptionResponse, error) {
	users, err := s.Users(authors)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	type authorCount struct {
		AuthorID uint
		Total    int64
	}
	var counts []authorCount
	if len(ids) > 0 {
		err = s.db.Model(&models.Recipe{}).
			Select("author_id, COUNT(*) AS total").
			Where("author_id IN ?", ids).
			Group("author_id").
			Scan(&counts).Error
		if err != nil {
			return nil, err
		}
	}
	totals := make(map[uint]int64, len(counts))
	for _, c := range counts {
		totals[c.AuthorID] = c.Total
	}

	out := make([]SubscriptionResponse, len(authors))
	for i, a := range authors {
		query := s.db.Where("author_id = ?", a.ID).Order("pub_date DESC, id DESC")
		if recipesLimit >= 0 {
			query = query.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if err := query.Find(&recipes).Error; err != nil {
			return nil, err
		}

		short := make([]RecipeShortResponse, len(recipes))
		for j, r := range recipes {
			short[j] = s.RecipeShort(r)
		}
		out[i] = SubscriptionResponse{
			UserResponse: users[i],
			Recipes:      short,
			RecipesCount: totals[a.ID],
		}
	}
	return out, nil
}
