package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL    string
	MigrationsPath string

	// Redis
	RedisURL string

	// Elasticsearch
	ESURL      string
	ESAPIKey   string
	DocsIndex  string
	ChatsIndex string
	BooksIndex string
	WikiIndex  string

	RegulationsIndex string
	RegulationsField string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Google Books
	GoogleBooksAPIKey string

	// Storage
	StoragePath string
	MaxUploadMB int

	// Admin JWT secret. Empty disables admin auth.
	SecretKey string

	// CORS
	CORSOrigins []string

	// Processing
	WorkerCount        int
	IndexConcurrency   int
	CacheTTLMinutes    int
	StaleUploadMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		MigrationsPath:       getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		ESURL:                getEnvOrDefault("ES_URL", "http://localhost:9200"),
		ESAPIKey:             getEnvOrDefault("ES_API_KEY", ""),
		DocsIndex:            getEnvOrDefault("DOCS_INDEX", "elastic_lm_docs"),
		ChatsIndex:           getEnvOrDefault("CHATS_INDEX", "elastic_lm_chats"),
		BooksIndex:           getEnvOrDefault("BOOKS_INDEX", "books"),
		WikiIndex:            getEnvOrDefault("WIKI_INDEX", "wiki-voyage_2025-03-07_elser-embeddings"),
		RegulationsIndex:     getEnvOrDefault("REGULATIONS_INDEX", "nyc_regulations"),
		RegulationsField:     getEnvOrDefault("REGULATIONS_FIELD", "semantic_content"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GoogleBooksAPIKey:    getEnvOrDefault("GOOGLE_BOOKS_API_KEY", ""),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 100),
		SecretKey:            getEnvOrDefault("SECRET_KEY", ""),
		CORSOrigins:          getEnvAsListOrDefault("CORS_ORIGINS", []string{"http://localhost:3000"}),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 4),
		IndexConcurrency:     getEnvAsIntOrDefault("INDEX_CONCURRENCY", 16),
		CacheTTLMinutes:      getEnvAsIntOrDefault("CACHE_TTL_MINUTES", 60),
		StaleUploadMinutes:   getEnvAsIntOrDefault("STALE_UPLOAD_MINUTES", 30),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsListOrDefault splits a comma separated value, dropping empty entries.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
