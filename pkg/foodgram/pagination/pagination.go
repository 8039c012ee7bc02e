package pagination

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

// ErrInvalidPage is returned for a page number past the last page.
var ErrInvalidPage = errors.New("invalid page")

// Params are the page and limit query parameters of a list request
type Params struct {
	Page  int
	Limit int
}

// FromRequest reads page and limit, falling back to defaults for
// missing or invalid values.
func FromRequest(c *gin.Context, defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	p := Params{Page: 1, Limit: defaultLimit}

	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = min(v, MaxPageSize)
	}
	return p
}

// Offset is the number of rows skipped before this page. It saturates
// at math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// pages is the number of pages needed for count rows
func (p Params) pages(count int64) int64 {
	if count <= 0 || p.Limit <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (count-1)/limit + 1
}

// Apply limits query to this page
func (p Params) Apply(query *gorm.DB) *gorm.DB {
	return query.Limit(p.Limit).Offset(p.Offset())
}

// Check rejects pages past the end. Page 1 of an empty list is valid.
func (p Params) Check(count int64) error {
	if p.Page > 1 && int64(p.Page-1) >= p.pages(count) {
		return ErrInvalidPage
	}
	return nil
}

// Page is a paginated list response
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the response with absolute next/previous links derived
// from the request URL.
func NewPage[T any](c *gin.Context, p Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(p.Page) < p.pages(count) {
		next := pageURL(c.Request, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c.Request, p.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(r *http.Request, page int) string {
	u := *r.URL
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return BaseURL(r) + u.RequestURI()
}

// BaseURL returns scheme://host of the request, honouring X-Forwarded-Proto.
func BaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
