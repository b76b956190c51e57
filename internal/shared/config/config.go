package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Env             string
	DatabaseURL     string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	// Queue producer settings. When IngestQueueURL is empty the in-process
	// dispatcher is used for all kinds.
	IngestQueueURL     string
	GenerationQueueURL string

	// Generation provider.
	GeminiAPIKey string
	LLMModel     string

	// Worker pool sizes. Generation kinds are pinned to 1 elsewhere; only
	// ingestion concurrency is tunable.
	IngestConcurrency int

	// Rate limiter tunables for the generation endpoint.
	GenMinSpacing        time.Duration
	GenReservoirSize     int
	GenReservoirInterval time.Duration
	GenCallTimeout       time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Env:                  env,
		DatabaseURL:          dbURL,
		ObjectStoreType:      normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:        getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:            getEnv("AWS_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		IngestQueueURL:       getEnv("TB_SQS_INGEST_QUEUE_URL", ""),
		GenerationQueueURL:   getEnv("TB_SQS_GENERATION_QUEUE_URL", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", ""),
		IngestConcurrency:    getEnvInt("TB_INGEST_CONCURRENCY", 4),
		GenMinSpacing:        getEnvDuration("TB_GEN_MIN_SPACING", 2*time.Second),
		GenReservoirSize:     getEnvInt("TB_GEN_RESERVOIR_SIZE", 30),
		GenReservoirInterval: getEnvDuration("TB_GEN_RESERVOIR_INTERVAL", time.Minute),
		GenCallTimeout:       getEnvDuration("TB_GEN_CALL_TIMEOUT", 90*time.Second),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
