package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	JWTSecret    string
}

type AIConfig struct {
	GenerationModel  string
	EmbeddingModel   string
	EmbeddingDim     int
	EmbedConcurrency int
	RetrievalTopK    int
	RephraseQueries  bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GEMINI_API_KEY", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			GenerationModel:  getEnv("GEMINI_GENERATION_MODEL", "gemini-1.5-flash"),
			EmbeddingModel:   getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			EmbeddingDim:     getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
			RetrievalTopK:    getEnvAsInt("RETRIEVAL_TOP_K", 3),
			RephraseQueries:  getEnvAsBool("REPHRASE_QUERIES", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
