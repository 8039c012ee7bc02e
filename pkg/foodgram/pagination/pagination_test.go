package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T, target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest("GET", target, nil)
	require.NoError(t, err)
	req.Host = "foodgram.test"
	c.Request = req
	return c
}

func TestFromRequest(t *testing.T) {
	p := FromRequest(testContext(t, "/api/recipes/"), 6)
	assert.Equal(t, Params{Page: 1, Limit: 6}, p)

	p = FromRequest(testContext(t, "/api/recipes/?page=3&limit=10"), 6)
	assert.Equal(t, Params{Page: 3, Limit: 10}, p)
	assert.Equal(t, 20, p.Offset())

	p = FromRequest(testContext(t, "/api/recipes/?page=-1&limit=abc"), 6)
	assert.Equal(t, Params{Page: 1, Limit: 6}, p)

	p = FromRequest(testContext(t, "/api/recipes/?limit=1000"), 6)
	assert.Equal(t, MaxPageSize, p.Limit)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Params{Page: 1, Limit: 6}.Check(0))
	assert.NoError(t, Params{Page: 2, Limit: 6}.Check(7))
	assert.ErrorIs(t, Params{Page: 2, Limit: 6}.Check(6), ErrInvalidPage)
}

func TestHugePageRejected(t *testing.T) {
	p := FromRequest(testContext(t, "/api/recipes/?page=9223372036854775807&limit=6"), 6)
	require.Equal(t, math.MaxInt, p.Page)

	assert.ErrorIs(t, p.Check(5), ErrInvalidPage)
	assert.ErrorIs(t, p.Check(math.MaxInt64), ErrInvalidPage)
	assert.Equal(t, math.MaxInt, p.Offset())

	c := testContext(t, "/api/recipes/")
	page := NewPage[int](c, Params{Page: math.MaxInt / 2, Limit: 6}, 5, nil)
	assert.Nil(t, page.Next)
	assert.NoError(t, Params{Page: 3, Limit: 2}.Check(5))
	assert.ErrorIs(t, Params{Page: 4, Limit: 2}.Check(5), ErrInvalidPage)
}

func TestNewPageLinks(t *testing.T) {
	c := testContext(t, "/api/recipes/?page=2&limit=2&tags=lunch")
	page := NewPage(c, Params{Page: 2, Limit: 2}, 5, []int{3, 4})

	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://foodgram.test/api/recipes/?limit=2&page=3&tags=lunch", *page.Next)
	assert.Equal(t, "http://foodgram.test/api/recipes/?limit=2&tags=lunch", *page.Previous)
	assert.Equal(t, int64(5), page.Count)
}

func TestNewPageLastAndEmpty(t *testing.T) {
	c := testContext(t, "/api/users/")
	page := NewPage[string](c, Params{Page: 1, Limit: 6}, 0, nil)

	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
	assert.NotNil(t, page.Results)
	assert.Len(t, page.Results, 0)
}

func TestBaseURLForwardedProto(t *testing.T) {
	c := testContext(t, "/api/users/")
	c.Request.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://foodgram.test", BaseURL(c.Request))
}
