package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	HTTPPort       string
	LogLevel       string
	JWTSecret      string
	OllamaHost     string
	ChatModel      string
	EmbeddingModel string
	WordcloudFont  string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		DatabaseURL:    getEnv("DATABASE_URL", "assistant.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		ChatModel:      getEnv("CHAT_MODEL", "llama3.2:3b"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		WordcloudFont:  getEnv("WORDCLOUD_FONT", "fonts/DejaVuSans.ttf"),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
