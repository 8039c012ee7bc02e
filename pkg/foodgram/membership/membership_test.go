package membership

import (
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
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func TestAddTwiceKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	favorites := Favorites(db)

	require.NoError(t, favorites.Add(1, 10))
	assert.ErrorIs(t, favorites.Add(1, 10), ErrExists)

	var count int64
	db.Model(&models.Favorite{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRemove(t *testing.T) {
	db := setupTestDB(t)
	cart := ShoppingCarts(db)

	require.NoError(t, cart.Add(1, 10))
	require.NoError(t, cart.Remove(1, 10))
	assert.ErrorIs(t, cart.Remove(1, 10), ErrNotMember)

	var count int64
	db.Model(&models.ShoppingCart{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSetsAreIndependent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Favorites(db).Add(1, 10))

	inCart, err := ShoppingCarts(db).Exists(1, 10)
	require.NoError(t, err)
	assert.False(t, inCart)

	favorited, err := Favorites(db).Exists(1, 10)
	require.NoError(t, err)
	assert.True(t, favorited)
}

func TestMembers(t *testing.T) {
	db := setupTestDB(t)
	subs := Subscriptions(db)

	require.NoError(t, subs.Add(1, 2))
	require.NoError(t, subs.Add(1, 3))
	require.NoError(t, subs.Add(4, 5))

	found, err := subs.Members(1, []uint{2, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{2: true, 3: true}, found)

	empty, err := subs.Members(1, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDuplicateInsertTranslated(t *testing.T) {
	db := setupTestDB(t)

	// Insert behind the store's back to simulate a concurrent winner
	require.NoError(t, db.Create(&models.Favorite{UserID: 1, RecipeID: 10}).Error)
	err := db.Create(&models.Favorite{UserID: 1, RecipeID: 10}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestTargetsQuery(t *testing.T) {
	db := setupTestDB(t)
	favorites := Favorites(db)
	require.NoError(t, favorites.Add(1, 10))
	require.NoError(t, favorites.Add(1, 11))
	require.NoError(t, favorites.Add(2, 12))

	var ids []uint
	require.NoError(t, favorites.TargetsQuery(1).Pluck("recipe_id", &ids).Error)
	assert.ElementsMatch(t, []uint{10, 11}, ids)
}
