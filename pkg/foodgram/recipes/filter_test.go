package recipes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	q, _ := url.ParseQuery("author=3&tags=lunch&tags=&tags=lunch&tags=dinner&is_favorited=1&is_in_shopping_cart=0")
	f, err := ParseFilter(q)
	require.NoError(t, err)

	require.NotNil(t, f.AuthorID)
	assert.Equal(t, uint(3), *f.AuthorID)
	assert.True(t, f.TagsPresent)
	assert.Equal(t, []string{"lunch", "dinner"}, f.Tags)
	require.NotNil(t, f.Favorited)
	assert.True(t, *f.Favorited)
	require.NotNil(t, f.InShoppingCart)
	assert.False(t, *f.InShoppingCart)
}

func TestParseFilterDefaults(t *testing.T) {
	f, err := ParseFilter(url.Values{"is_favorited": {"true"}})
	require.NoError(t, err)

	assert.Nil(t, f.AuthorID)
	assert.False(t, f.TagsPresent)
	assert.Nil(t, f.Favorited)
	assert.Nil(t, f.InShoppingCart)
}

func TestParseFilterRejectsBadAuthor(t *testing.T) {
	_, err := ParseFilter(url.Values{"author": {"abc"}})
	assert.Error(t, err)
}
