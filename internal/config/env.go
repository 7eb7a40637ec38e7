package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	SslCertPath  string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string
	Port         string
	LogMode      string

	// Ingestion tuning.
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	BatchDelay   time.Duration

	// Retrieval tuning. The 0.3 floor and 0.9 overlap thresholds come from
	// the product defaults; they are knobs, not derived values.
	TopK            int
	SimilarityFloor float64
	DedupeOverlap   float64
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "notara-docs"),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		Port:         getEnv("PORT", "8080"),
		LogMode:      getEnv("LOG_MODE", "dev"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		BatchSize:    getEnvInt("EMBED_BATCH_SIZE", 5),
		BatchDelay:   time.Duration(getEnvInt("EMBED_BATCH_DELAY_MS", 6500)) * time.Millisecond,

		TopK:            getEnvInt("RETRIEVAL_TOP_K", 8),
		SimilarityFloor: getEnvFloat("SIMILARITY_FLOOR", 0.3),
		DedupeOverlap:   getEnvFloat("DEDUPE_OVERLAP", 0.9),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}
