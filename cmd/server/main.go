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

	"elasticlm-backend/internal/config"
	"elasticlm-backend/internal/database"
	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/handlers"
	"elasticlm-backend/internal/middleware"
	"elasticlm-backend/internal/repository"
	"elasticlm-backend/internal/router"
	"elasticlm-backend/internal/services"
	"elasticlm-backend/internal/websocket"
	"elasticlm-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting ElasticLM Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	if err := database.RunMigrations(pool, cfg.MigrationsPath); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Initialize Elasticsearch ────
	es, err := elastic.New(cfg.ESURL, cfg.ESAPIKey)
	if err != nil {
		log.Fatalf("✗ Elasticsearch client initialization failed: %v", err)
	}
	ensureIndices(es, cfg)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Initialize Repositories ────
	docRepo := repository.NewDocumentRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Services ────
	youtubeService := services.NewYouTubeService(geminiService)
	ingestService := services.NewIngestService(
		geminiService,
		es,
		services.NewFileExtractService(),
		youtubeService,
		cfg.DocsIndex,
		cfg.IndexConcurrency,
	)
	answerCache := services.NewRedisAnswerCache(redisClients.Queue, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	qaService := services.NewQAService(geminiService, es, es, answerCache, cfg.DocsIndex, cfg.ChatsIndex)
	wikiService := services.NewWikiSearchService(cfg.WikiIndex, nil)
	regulationsService := services.NewRegulationsChatService(geminiService, es, cfg.RegulationsIndex, cfg.RegulationsField)

	booksStore, err := services.NewGoogleBooksStore(context.Background(), cfg.GoogleBooksAPIKey)
	if err != nil {
		log.Fatalf("✗ Google Books client initialization failed: %v", err)
	}
	librarianService := services.NewLibrarianService(geminiService, es, booksStore, cfg.BooksIndex)

	queue := worker.NewRedisQueue(redisClients.Queue)

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Upload: handlers.NewUploadHandler(docRepo, jobRepo, queue, cfg.StoragePath, cfg.MaxUploadMB),
		Chat:   handlers.NewChatHandler(qaService),
		Admin:  handlers.NewAdminHandler(docRepo, es, cfg.DocsIndex, cfg.StoragePath),
		Search: handlers.NewSearchHandler(wikiService),
		Books:  handlers.NewBooksHandler(librarianService),

		RegulationsChat: websocket.ChatHandler(regulationsService),
	}

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		queue,
		worker.NewRedisPublisher(redisClients.Queue),
		ingestService,
		docRepo,
		jobRepo,
		cfg.StoragePath,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	sweeper := services.NewUploadSweeper(docRepo, time.Duration(cfg.StaleUploadMinutes)*time.Minute)
	sweeper.Start()
	log.Println("✓ Upload sweeper started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	adminAuth := middleware.NewAdminAuth(cfg.SecretKey)
	if !adminAuth.Enabled() {
		log.Println("⚠ SECRET_KEY not set, admin routes are unauthenticated")
	}
	limiter := router.NewRateLimiter()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router.New(h, adminAuth, limiter, wsHub, cfg.CORSOrigins),
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		sweeper.Stop()
		limiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ ElasticLM Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/ws/uploads", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// ensureIndices creates the document and chat indices when missing. The
// server still starts without a reachable cluster.
func ensureIndices(es *elastic.Client, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := es.Ping(ctx); err != nil {
		log.Printf("✗ Elasticsearch unreachable at %s: %v", cfg.ESURL, err)
		return
	}
	log.Println("✓ Elasticsearch connected")

	indices := []struct {
		name    string
		mapping map[string]interface{}
	}{
		{cfg.DocsIndex, elastic.DocsMapping()},
		{cfg.ChatsIndex, elastic.ChatsMapping()},
	}
	for _, idx := range indices {
		created, err := es.EnsureIndex(ctx, idx.name, idx.mapping)
		if err != nil {
			log.Printf("✗ Failed to ensure index %s: %v", idx.name, err)
			continue
		}
		if created {
			log.Printf("✓ Created index %s", idx.name)
		}
	}
}
