package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banking/fraud-risk/internal/api"
	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/crypto"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/events"
	"github.com/banking/fraud-risk/internal/geocode"
	"github.com/banking/fraud-risk/internal/ledger"
	"github.com/banking/fraud-risk/internal/repository/elasticsearch"
	"github.com/banking/fraud-risk/internal/repository/postgres"
	"github.com/banking/fraud-risk/internal/repository/s3"
	"github.com/banking/fraud-risk/internal/scoring"
	"github.com/banking/fraud-risk/internal/service"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting Fraud Risk Service...")

	// 3. Crypto / Security
	encryptor, err := crypto.NewFieldEncryptor(
		cfg.Signing.EncryptionKeysBase64,
		cfg.Signing.CurrentKeyVersion,
		cfg.Signing.DecisionHMACSecret,
	)
	if err != nil {
		sugar.Fatalf("Failed to initialize encryptor: %v", err)
	}

	// 4. Repositories
	pool, err := postgres.NewPool(context.Background(), cfg.Database)
	if err != nil {
		sugar.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool, encryptor)
	transactionRepo := postgres.NewTransactionRepository(pool)
	alertRepo := postgres.NewAlertRepository(pool)

	var indexer service.SearchIndexer
	var searcher api.TransactionSearcher
	esRepo, err := elasticsearch.NewSearchRepository(cfg.Elasticsearch)
	if err != nil {
		sugar.Warnf("Failed to connect to Elasticsearch: %v (search disabled)", err)
	} else {
		indexer = esRepo
		searcher = esRepo
	}

	s3Repo, err := s3.NewArchiveRepository(context.Background(), cfg.S3)
	if err != nil {
		sugar.Fatalf("Failed to initialize S3 repository: %v", err)
	}

	// 5. Scoring pipeline
	geo := scoring.NewGeoClassifier(cfg.Geo)
	transformer := scoring.NewFeatureTransformer(cfg.Features, geo)
	regional := scoring.NewModelAdapter("regional", cfg.Scoring.RegionalModelPath, cfg.Scoring.InferenceTimeout, logger)
	global := scoring.NewModelAdapter("global", cfg.Scoring.GlobalModelPath, cfg.Scoring.InferenceTimeout, logger)
	blender := scoring.NewHybridBlender(regional, global, scoring.NewRuleFallbackScorer(), geo, cfg.Scoring, logger)
	classifier := scoring.NewRiskClassifier(cfg.Risk)

	centroid := domain.Coordinates{Lat: cfg.Geo.CentroidLat, Lon: cfg.Geo.CentroidLon}
	geocoder := geocode.NewGeocoder(cfg.Geocoding, centroid, logger)

	// 6. Ledger and services
	creditLedger := ledger.NewCreditLedger(accountRepo, logger)

	var publisher service.AlertPublisher
	producer, err := events.NewAlertProducer(cfg.Kafka, logger)
	if err != nil {
		sugar.Warnf("Failed to create Kafka producer: %v (alert publishing disabled)", err)
	} else {
		publisher = producer
		defer producer.Close()
	}

	lifecycleService := service.NewLifecycleService(
		accountRepo, transactionRepo, alertRepo,
		creditLedger, transformer, blender, classifier,
		geocoder, encryptor, indexer, publisher, logger,
	)
	accountService := service.NewAccountService(accountRepo, transactionRepo, logger)
	alertService := service.NewAlertService(alertRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Kafka Consumer
	consumer, err := events.NewSubmissionConsumer(cfg.Kafka, lifecycleService, logger)
	if err != nil {
		sugar.Warnf("Failed to create Kafka consumer: %v (event submissions disabled)", err)
	} else {
		go func() {
			sugar.Info("Starting Kafka consumer loop...")
			if err := consumer.Start(ctx); err != nil {
				sugar.Errorf("Kafka consumer failed: %v", err)
			}
		}()
		defer consumer.Close()
	}

	// 8. Archiver
	if cfg.Archive.Enabled {
		archiver := service.NewArchiver(transactionRepo, s3Repo, cfg.Archive.Interval, cfg.Archive.RetainFor, logger)
		go archiver.Run(ctx)
	}

	// 9. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	transactionHandler := api.NewTransactionHandler(lifecycleService, accountService)
	adminHandler := api.NewAdminHandler(lifecycleService, alertService, accountService, searcher)

	transactionHandler.RegisterRoutes(e.Group(""))

	adminGroup := e.Group("/admin")

	// Admin surface requires a JWT signed by the auth service.
	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("Failed to parse JWT public key: %v", err)
		}
	} else {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		jwtConfig := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		adminGroup.Use(echojwt.WithConfig(jwtConfig))
		sugar.Info("JWT Authentication enabled for /admin/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key (Security Risk)")
	}

	adminHandler.RegisterRoutes(adminGroup)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start Server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}
