// Package membership manages (user, target) set rows: favorites, shopping
// cart entries and subscriptions. The store's unique index on the pair is
// the only guard against concurrent duplicate inserts.
package membership

import (
	"errors"
	"fmt"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

var (
	// ErrExists means the pair is already in the set.
	ErrExists = errors.New("membership already exists")
	// ErrNotMember means the pair is not in the set.
	ErrNotMember = errors.New("membership does not exist")
)

// Store is one named set of (user, target) pairs backed by a model table.
type Store[T any] struct {
	db       *gorm.DB
	name     string
	targetFK string
	build    func(userID, targetID uint) *T
}

// Favorites is the set of recipes a user marked as favorite.
func Favorites(db *gorm.DB) *Store[models.Favorite] {
	return &Store[models.Favorite]{db: db, name: "favorite", targetFK: "recipe_id",
		build: func(userID, targetID uint) *models.Favorite {
			return &models.Favorite{UserID: userID, RecipeID: targetID}
		}}
}

// ShoppingCarts is the set of recipes in a user's shopping list.
func ShoppingCarts(db *gorm.DB) *Store[models.ShoppingCart] {
	return &Store[models.ShoppingCart]{db: db, name: "shopping_cart", targetFK: "recipe_id",
		build: func(userID, targetID uint) *models.ShoppingCart {
			return &models.ShoppingCart{UserID: userID, RecipeID: targetID}
		}}
}

// Subscriptions is the set of authors a user follows.
func Subscriptions(db *gorm.DB) *Store[models.Subscription] {
	return &Store[models.Subscription]{db: db, name: "subscription", targetFK: "author_id",
		build: func(userID, targetID uint) *models.Subscription {
			return &models.Subscription{UserID: userID, AuthorID: targetID}
		}}
}

// Name identifies the set in logs and metrics.
func (s *Store[T]) Name() string {
	return s.name
}

// TargetColumn is the column holding the target id.
func (s *Store[T]) TargetColumn() string {
	return s.targetFK
}

// Exists reports whether (userID, targetID) is in the set.
func (s *Store[T]) Exists(userID, targetID uint) (bool, error) {
	var count int64
	err := s.db.Model(new(T)).
		Where("user_id = ? AND "+s.targetFK+" = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s: %w", s.name, err)
	}
	return count > 0, nil
}

// Add inserts the pair. It returns ErrExists when the pair is present,
// including when a concurrent insert wins the race.
func (s *Store[T]) Add(userID, targetID uint) error {
	exists, err := s.Exists(userID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return ErrExists
	}

	if err := s.db.Create(s.build(userID, targetID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrExists
		}
		return fmt.Errorf("add %s: %w", s.name, err)
	}
	return nil
}

// Remove deletes the pair, or returns ErrNotMember when it is absent.
func (s *Store[T]) Remove(userID, targetID uint) error {
	result := s.db.Where("user_id = ? AND "+s.targetFK+" = ?", userID, targetID).Delete(new(T))
	if result.Error != nil {
		return fmt.Errorf("remove %s: %w", s.name, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// Members returns which of targetIDs are in userID's set.
func (s *Store[T]) Members(userID uint, targetIDs []uint) (map[uint]bool, error) {
	found := make(map[uint]bool)
	if len(targetIDs) == 0 {
		return found, nil
	}

	var ids []uint
	err := s.db.Model(new(T)).
		Where("user_id = ? AND "+s.targetFK+" IN ?", userID, targetIDs).
		Pluck(s.targetFK, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

// TargetsQuery selects the target ids in userID's set, for use as a subquery.
func (s *Store[T]) TargetsQuery(userID uint) *gorm.DB {
	return s.db.Model(new(T)).Select(s.targetFK).Where("user_id = ?", userID)
}
