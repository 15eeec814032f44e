package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-foodgram-api/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/config"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/server"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	shutdownTimeout    = 10 * time.Second
	tokenPruneInterval = time.Hour
)

// @title Foodgram API
// @version 1.0
// @description Recipes, favorites, subscriptions and shopping lists
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db := setupDatabase(configuration)

	deps := setupDependencies(ctx, configuration, db)
	defer deps.AuthLimiter.Stop()
	go deps.AuthLimiter.StartCleanup(10 * time.Minute)
	go pruneTokens(ctx, deps.OAuth)

	if configuration.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", configuration.Host, configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shut down")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server stopped gracefully")
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	if level, err := log.ParseLevel(config.GetEnvWithDefault("LOG_LEVEL", "")); err == nil {
		log.SetLevel(level)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	return conf
}

// setupDatabase connects with retries and migrates the schema
func setupDatabase(conf *config.Config) *gorm.DB {
	db, err := database.InitDatabase(conf.DatabaseConfig())
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
	return db
}

// setupDependencies builds the image store, the domain services and the token server
func setupDependencies(ctx context.Context, conf *config.Config, db *gorm.DB) server.Dependencies {
	deps := server.Dependencies{
		DB:          db,
		JWTSecret:   []byte(conf.JWTSecret),
		AuthLimiter: middleware.NewRateLimiter(conf.AuthRateLimit, time.Minute),
		Logger:      log.StandardLogger(),
	}

	var images storage.ImageStore
	switch conf.MediaBackend {
	case "s3":
		store, err := storage.NewS3ImageStore(ctx, storage.S3Config{
			Endpoint:  conf.S3Endpoint,
			Region:    conf.S3Region,
			Bucket:    conf.S3Bucket,
			AccessKey: conf.S3AccessKey,
			SecretKey: conf.S3SecretKey,
		})
		checkPanicErr(err)
		images = store
	default:
		store, err := storage.NewLocalImageStore(conf.MediaRoot, conf.MediaURL)
		checkPanicErr(err)
		images = store
		deps.MediaRoot = store.Root()
		deps.MediaPath = mediaPath(conf.MediaURL)
	}

	svc := server.NewServices(db, images, conf.ReferenceCacheSize)
	deps.Services = svc

	// The web frontend is a first-party client of the token endpoint
	_, err := svc.Clients.EnsureClient(ctx, conf.OAuthClientID, conf.OAuthClientSecret, "")
	checkPanicErr(err)

	deps.OAuth = auth.NewOAuthService(db, auth.Config{
		JWTSecret:    conf.JWTSecret,
		ClientID:     conf.OAuthClientID,
		ClientSecret: conf.OAuthClientSecret,
		TokenTTL:     conf.TokenTTL(),
	}, svc.Users)
	return deps
}

// mediaPath returns the route prefix of MEDIA_URL, which may be absolute
func mediaPath(mediaURL string) string {
	parsed, err := url.Parse(mediaURL)
	if err != nil || parsed.Path == "" {
		return "/media"
	}
	return parsed.Path
}

// pruneTokens removes expired tokens until ctx is cancelled
func pruneTokens(ctx context.Context, oauth *auth.OAuthService) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := oauth.PruneExpired(ctx); err != nil {
				log.WithError(err).Warn("Failed to prune expired tokens")
			}
		}
	}
}
