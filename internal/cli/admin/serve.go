package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/loomworks/memoir/internal/api/handlers"
	"github.com/loomworks/memoir/internal/cache"
	"github.com/loomworks/memoir/internal/config"
	"github.com/loomworks/memoir/internal/database"
	"github.com/loomworks/memoir/internal/jobs"
	"github.com/loomworks/memoir/internal/keywordindex"
	"github.com/loomworks/memoir/internal/openai"
	"github.com/loomworks/memoir/internal/server"
	"github.com/loomworks/memoir/internal/service"
	"github.com/loomworks/memoir/internal/storage"
	"github.com/loomworks/memoir/internal/telemetry"
	"github.com/loomworks/memoir/internal/vectorstore"
)

const mirrorRepairInterval = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the memoir API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("MEMOIR_OPENAI_API_KEY is required: ingestion and search need an embedding provider")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	vectors := vectorstore.New(pool)

	keywordPool := pool
	if cfg.KeywordDatabaseURL != "" {
		keywordPool, err = database.NewPool(ctx, database.Config{URL: cfg.KeywordDatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to keyword database: %w", err)
		}
		defer keywordPool.Close()
		if !noMigrate {
			if err := runMigrations(cfg.KeywordDatabaseURL); err != nil {
				return fmt.Errorf("failed to run keyword database migrations: %w", err)
			}
		}
		log.Println("connected to keyword database")
	}
	keywords := keywordindex.New(keywordPool)

	var blobs service.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobs = s3Client
	}

	oaClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimension,
		CompletionModel:     cfg.CompletionModel,
	})

	var responseCache service.ResponseCache
	var cachePinger handlers.Pinger
	if cfg.HasRedis() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		c := cache.NewCache(redisClient, time.Duration(cfg.CacheTTLSecs)*time.Second)
		responseCache = c
		cachePinger = c
		log.Println("search response cache enabled")
	}

	ingestSvc := service.NewIngestionService(oaClient, vectors, service.IngestionConfig{
		Keywords:    keywords,
		Blobs:       blobs,
		Transcriber: oaClient,
		Describer:   oaClient,
		MaxTokens:   cfg.ChunkMaxTokens,
	})

	searchSvc := service.NewSearchService(oaClient, vectors, service.SearchConfig{
		Keywords:    keywords,
		Synthesizer: service.NewSynthesizer(oaClient),
		Cache:       responseCache,
	})

	var mirrorWorker *jobs.Worker
	if cfg.MirrorRepair {
		processor := jobs.NewMirrorProcessor(vectors, keywords)
		mirrorWorker = jobs.NewWorker(processor, mirrorRepairInterval)
		go mirrorWorker.Start(ctx)
		log.Println("mirror repair worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		APIKey:        cfg.APIKey,
		IngestHandler: handlers.NewIngestHandler(ingestSvc),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		MemoryHandler: handlers.NewMemoryHandler(ingestSvc),
		HealthHandler: handlers.NewHealthHandler(vectors, keywords, cachePinger),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if mirrorWorker != nil {
		mirrorWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
