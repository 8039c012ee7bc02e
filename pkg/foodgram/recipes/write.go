package recipes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
)

// IngredientAmount is one ingredient line of a recipe write
type IngredientAmount struct {
	ID     uint    `json:"id" validate:"required"`
	Amount float64 `json:"amount" validate:"min=1"`
}

// RecipeRequest is the body of recipe create and partial update.
// Image is a data:image/<ext>;base64 URI, or a file part in multipart bodies.
type RecipeRequest struct {
	Ingredients []IngredientAmount `json:"ingredients" validate:"min=1"`
	Tags        []uint             `json:"tags" validate:"min=1"`
	Image       string             `json:"image"`
	Name        string             `json:"name" validate:"required,max=100"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"min=1"`
}

const fieldRequired = "This field is required."

// requiredOnCreate lists the body keys a new recipe needs.
var requiredOnCreate = []string{"ingredients", "tags", "image", "name", "text", "cooking_time"}

// structFields maps body keys to the RecipeRequest fields validated when present.
var structFields = map[string]string{
	"ingredients":  "Ingredients",
	"tags":         "Tags",
	"name":         "Name",
	"text":         "Text",
	"cooking_time": "CookingTime",
}

// recipeWrite is a parsed body with the keys it carried.
type recipeWrite struct {
	RecipeRequest
	present map[string]bool
	upload  *media.Upload
}

func (w *recipeWrite) has(key string) bool {
	return w.present[key]
}

// parseWrite reads a JSON or multipart/form-data body.
func parseWrite(c *gin.Context) (*recipeWrite, error) {
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		return parseMultipart(c)
	}
	return parseJSON(c)
}

func parseJSON(c *gin.Context) (*recipeWrite, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 2*media.MaxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, apierror.FromBinding(err)
	}

	w := &recipeWrite{present: make(map[string]bool, len(keys))}
	for k := range keys {
		w.present[k] = true
	}
	if err := binding.JSON.BindBody(body, &w.RecipeRequest); err != nil {
		return nil, apierror.FromBinding(err)
	}

	if w.has("image") {
		upload, err := media.DecodeDataURI(w.Image)
		if err != nil {
			return nil, apierror.Field("image", imageMessage(err))
		}
		w.upload = upload
	}
	return w, nil
}

func parseMultipart(c *gin.Context) (*recipeWrite, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apierror.Field("non_field_errors", "Malformed multipart body.")
	}

	w := &recipeWrite{present: make(map[string]bool)}
	first := func(key string) (string, bool) {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return "", false
		}
		w.present[key] = true
		return values[0], true
	}

	if v, ok := first("name"); ok {
		w.Name = v
	}
	if v, ok := first("text"); ok {
		w.Text = v
	}
	if v, ok := first("cooking_time"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, apierror.Field("cooking_time", "A valid integer is required.")
		}
		w.CookingTime = n
	}
	if values, ok := form.Value["tags"]; ok {
		w.present["tags"] = true
		for _, v := range values {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, apierror.Field("tags", fmt.Sprintf("Incorrect type. Expected pk value, received %q.", v))
			}
			w.Tags = append(w.Tags, uint(id))
		}
	}
	if v, ok := first("ingredients"); ok {
		if err := json.Unmarshal([]byte(v), &w.Ingredients); err != nil {
			return nil, apierror.Field("ingredients", "Expected a JSON list of {\"id\", \"amount\"} objects.")
		}
	}

	if files := form.File["image"]; len(files) > 0 {
		w.present["image"] = true
		f, err := files[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open image part: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
		if err != nil {
			return nil, fmt.Errorf("read image part: %w", err)
		}
		upload, err := media.FromBytes(data)
		if err != nil {
			return nil, apierror.Field("image", imageMessage(err))
		}
		w.upload = upload
	} else if v, ok := first("image"); ok {
		upload, err := media.DecodeDataURI(v)
		if err != nil {
			return nil, apierror.Field("image", imageMessage(err))
		}
		w.upload = upload
	}
	return w, nil
}

func imageMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrImageTooLarge):
		return "Image is too large."
	case errors.Is(err, media.ErrUnsupportedExt):
		return "Unsupported image format. Use png, jpeg, gif or webp."
	case errors.Is(err, media.ErrNotDataURI):
		return "Expected a data:image/<ext>;base64,<payload> string."
	default:
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
}

// validate checks field rules. creating additionally requires every field.
func (h *Handler) validate(w *recipeWrite, creating bool) error {
	errs := make(map[string][]string)
	add := func(fields map[string][]string) {
		for k, msgs := range fields {
			for _, m := range msgs {
				if !slices.Contains(errs[k], m) {
					errs[k] = append(errs[k], m)
				}
			}
		}
	}

	if creating {
		for _, key := range requiredOnCreate {
			if !w.has(key) {
				errs[key] = []string{fieldRequired}
			}
		}
	}

	var fields []string
	for key, field := range structFields {
		if w.has(key) {
			fields = append(fields, field)
		}
	}
	if len(fields) > 0 {
		add(h.validator.Partial(&w.RecipeRequest, fields...))
	}

	if w.has("ingredients") {
		seen := make(map[uint]bool, len(w.Ingredients))
		for _, item := range w.Ingredients {
			add(h.validator.Struct(item))
			if seen[item.ID] {
				add(map[string][]string{"ingredients": {fmt.Sprintf("Ingredient %d is listed more than once.", item.ID)}})
			}
			seen[item.ID] = true
		}
	}

	if len(errs) > 0 {
		return &apierror.ValidationError{Fields: errs}
	}
	return nil
}

// resolveTags loads the requested tags; unknown ids are a validation error.
func (h *Handler) resolveTags(ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := h.db.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(tags))
	for _, t := range tags {
		found[t.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, apierror.Field("tags", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}
	return tags, nil
}

// checkIngredients returns ErrNotFound when any requested ingredient is unknown.
func (h *Handler) checkIngredients(items []IngredientAmount) error {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	var count int64
	if err := h.db.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return apierror.ErrNotFound
	}
	return nil
}

func ingredientRows(recipeID uint, items []IngredientAmount) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount}
	}
	return rows
}
