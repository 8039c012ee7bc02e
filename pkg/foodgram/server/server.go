// Package server assembles the HTTP router shared by the binary and its tests.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/ingredients"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/ratelimit"
	"github.com/mikepea/foodgram/pkg/foodgram/recipes"
	"github.com/mikepea/foodgram/pkg/foodgram/tags"
	"github.com/mikepea/foodgram/pkg/foodgram/users"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/foodgram/api/swagger"
)

// Options configures the router.
type Options struct {
	DB      *gorm.DB
	Storage *media.LocalStorage
	// MediaURL is the path uploaded files are served under, e.g. /media/.
	MediaURL string
	PageSize int
	FontPath string
	// CORSOrigins lists the allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string
	// LoginLimiter throttles token logins per client. Nil disables throttling.
	LoginLimiter *ratelimit.KeyedLimiter
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are honored when resolving the client IP. Empty trusts none.
	TrustedProxies []string
}

// NewRouter registers every route on a fresh engine.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	var proxies []string
	if len(opts.TrustedProxies) > 0 {
		proxies = opts.TrustedProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		logging.Error().Err(err).Strs("proxies", proxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), logging.GinLogger(), metrics.Middleware())

	r.NoRoute(func(c *gin.Context) {
		apierror.Respond(c, apierror.ErrNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		apierror.Detail(c, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method \"%s\" not allowed.", c.Request.Method))
	})

	r.GET("/health", health(opts.DB))
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if opts.Storage != nil {
		mediaURL := strings.TrimSuffix(opts.MediaURL, "/")
		if mediaURL == "" {
			mediaURL = "/media"
		}
		r.Static(mediaURL, opts.Storage.Root())
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	api := r.Group("/api", auth.Authenticate(opts.DB))
	{
		api.GET("/health", health(opts.DB))

		var guards []gin.HandlerFunc
		if opts.LoginLimiter != nil {
			guards = append(guards, ratelimit.Middleware(opts.LoginLimiter))
		}
		auth.NewHandler(opts.DB).RegisterRoutes(api.Group("/auth"), guards...)

		tags.NewHandler(opts.DB).RegisterRoutes(api)
		ingredients.NewHandler(opts.DB).RegisterRoutes(api)

		var storage media.Storage
		if opts.Storage != nil {
			storage = opts.Storage
		}

		recipesHandler := recipes.NewHandler(opts.DB, storage)
		recipesHandler.PageSize = pageSize
		recipesHandler.FontPath = opts.FontPath
		recipesHandler.RegisterRoutes(api)

		usersHandler := users.NewHandler(opts.DB, storage)
		usersHandler.PageSize = pageSize
		usersHandler.RegisterRoutes(api)
	}

	return r
}

// NewHandler wraps the router with CORS handling.
func NewHandler(opts Options) http.Handler {
	router := NewRouter(opts)
	if len(opts.CORSOrigins) == 0 {
		return router
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logging.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "foodgram"})
	}
}
