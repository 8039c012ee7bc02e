package recipes

import (
	"net/url"
	"strconv"

	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/membership"
	"gorm.io/gorm"
)

// Filter holds the recipe list query parameters. Nil pointers do not filter.
type Filter struct {
	AuthorID       *uint
	Tags           []string
	TagsPresent    bool
	Favorited      *bool
	InShoppingCart *bool
}

// ParseFilter reads author, tags, is_favorited and is_in_shopping_cart.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if raw := q.Get("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return Filter{}, apierror.Field("author", "Select a valid choice. That choice is not one of the available choices.")
		}
		author := uint(id)
		f.AuthorID = &author
	}

	if values, ok := q["tags"]; ok {
		f.TagsPresent = true
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if v != "" && !seen[v] {
				seen[v] = true
				f.Tags = append(f.Tags, v)
			}
		}
	}

	f.Favorited = parseFlag(q.Get("is_favorited"))
	f.InShoppingCart = parseFlag(q.Get("is_in_shopping_cart"))
	return f, nil
}

func parseFlag(v string) *bool {
	switch v {
	case "1":
		b := true
		return &b
	case "0":
		b := false
		return &b
	default:
		return nil
	}
}

// Apply narrows a recipes query for viewer.
func (f Filter) Apply(db *gorm.DB, query *gorm.DB, viewer auth.Viewer) *gorm.DB {
	if f.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *f.AuthorID)
	}

	if f.TagsPresent {
		if len(f.Tags) == 0 {
			return query.Where("1 = 0")
		}
		tagged := db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.Tags)
		query = query.Where("recipes.id IN (?)", tagged)
	}

	query = applyMembership(query, membership.Favorites(db), f.Favorited, viewer)
	query = applyMembership(query, membership.ShoppingCarts(db), f.InShoppingCart, viewer)
	return query
}

// applyMembership keeps recipes in (want) or outside (!want) the viewer's set.
// Anonymous viewers have empty sets.
func applyMembership[T any](query *gorm.DB, store *membership.Store[T], want *bool, viewer auth.Viewer) *gorm.DB {
	if want == nil {
		return query
	}
	userID, ok := viewer.UserID()
	if !ok {
		if *want {
			return query.Where("1 = 0")
		}
		return query
	}
	if *want {
		return query.Where("recipes.id IN (?)", store.TargetsQuery(userID))
	}
	return query.Where("recipes.id NOT IN (?)", store.TargetsQuery(userID))
}

// ordered applies the default recipe ordering, newest first.
func ordered(query *gorm.DB) *gorm.DB {
	return query.Order("recipes.pub_date DESC").Order("recipes.id DESC")
}
