package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/config"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/importer"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/media"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/ratelimit"
	"github.com/mikepea/foodgram/pkg/foodgram/server"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// @title Foodgram API
// @version 1.0
// @description Recipe sharing with favorites, shopping lists and author subscriptions.

// @contact.name Foodgram Support
// @contact.url https://github.com/mikepea/foodgram

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Token from /auth/token/login/. Format: "Token {token}" or "Bearer {token}"

const (
	limiterPruneInterval = time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

func main() {
	app := &cli.App{
		Name:   "foodgram-server",
		Usage:  "recipe sharing backend",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "import",
				Usage: "load ingredients or tags from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "model",
						Usage:    "ingredients or tags",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "CSV file with a header row",
						Required: true,
					},
				},
				Action: importCSV,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatal().Err(err).Msg("foodgram-server failed")
	}
}

// setup loads configuration and opens the migrated database.
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if err := database.Connect(cfg.Database.Driver, cfg.Database.DSN, logging.NewGormLogger()); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.Info().Str("driver", cfg.Database.Driver).Msg("database migrations completed")

	return cfg, db, nil
}

func migrate(*cli.Context) error {
	_, _, err := setup()
	return err
}

func importCSV(c *cli.Context) error {
	_, db, err := setup()
	if err != nil {
		return err
	}

	n, err := importer.ImportFile(db, c.String("model"), c.String("file"))
	if err != nil {
		return err
	}
	logging.Info().Str("model", c.String("model")).Int("rows", n).Msg("import completed")
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}

	storage, err := media.NewLocalStorage(cfg.Media.Root, cfg.Media.URL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	go limiter.RunPruner(ctx, limiterPruneInterval, limiterMaxIdle)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: server.NewHandler(server.Options{
			DB:             db,
			Storage:        storage,
			MediaURL:       cfg.Media.URL,
			PageSize:       cfg.Pagination.PageSize,
			FontPath:       cfg.PDF.FontPath,
			CORSOrigins:    cfg.Server.CORSOrigins,
			LoginLimiter:   limiter,
			TrustedProxies: cfg.Server.TrustedProxies,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("starting foodgram server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logging.Info().Msg("server stopped")
	return nil
}
