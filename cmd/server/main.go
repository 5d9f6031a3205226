// Package main is the entry point for the catalog server. It loads
// configuration, connects to Postgres, wires repositories, services, and
// handlers, and runs the HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shopfront/catalog/app/catalog"
	"github.com/shopfront/catalog/app/categories"
	"github.com/shopfront/catalog/app/middleware"
	"github.com/shopfront/catalog/config"
	"github.com/shopfront/catalog/models"
	"github.com/shopfront/catalog/storage"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := buildLogger(cfg)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	files, err := buildStorage(cfg)
	if err != nil {
		log.Fatal("failed to initialize asset storage", zap.Error(err))
	}

	productsRepo := models.NewProductsRepository(db)
	categoriesRepo := models.NewCategoriesRepository(db)

	productSvc := catalog.NewService(productsRepo, files, log.Named("catalog"), cfg.StoreTimeout)
	categorySvc := categories.NewService(categoriesRepo, log.Named("categories"), cfg.StoreTimeout)

	handler := middleware.Logging(log)(buildRoutes(productSvc, categorySvc))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func buildRoutes(productSvc *catalog.Service, categorySvc *categories.Service) *http.ServeMux {
	productHandler := catalog.NewCatalogHandler(productSvc)
	categoryHandler := categories.NewCategoryHandler(categorySvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", productHandler.HandleList)
	mux.HandleFunc("POST /api/products", productHandler.HandleCreate)
	mux.HandleFunc("GET /api/products/{id}", productHandler.HandleGet)
	mux.HandleFunc("PUT /api/products/{id}", productHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/products/{id}", productHandler.HandleDelete)
	mux.HandleFunc("GET /api/products/{id}/categories", productHandler.HandleListCategories)
	mux.HandleFunc("POST /api/products/{id}/categories/{categoryID}", productHandler.HandleAttachCategory)
	mux.HandleFunc("DELETE /api/products/{id}/categories/{categoryID}", productHandler.HandleDetachCategory)

	mux.HandleFunc("GET /api/categories", categoryHandler.HandleGetAll)
	mux.HandleFunc("POST /api/categories", categoryHandler.HandleCreate)
	mux.HandleFunc("GET /api/categories/{id}", categoryHandler.HandleGet)
	mux.HandleFunc("PUT /api/categories/{id}", categoryHandler.HandleUpdate)
	mux.HandleFunc("DELETE /api/categories/{id}", categoryHandler.HandleDelete)
	mux.HandleFunc("GET /api/categories/{id}/products", categoryHandler.HandleListProducts)

	return mux
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	// TranslateError stays off: the driver's translation collapses unique
	// violations into a bare sentinel, discarding the constraint name the
	// error mapping needs to report which field collided.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// The join table carries its own timestamps, so register the model
	// before migrating.
	if err := db.SetupJoinTable(&models.Product{}, "Categories", &models.CategoryProduct{}); err != nil {
		return nil, err
	}
	if err := db.SetupJoinTable(&models.Category{}, "Products", &models.CategoryProduct{}); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func buildStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket), nil
	}
	return storage.NewDisk(cfg.MediaRoot)
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
