package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	APIKey         string
	LLMBaseURL     string
	ChatModel      string
	EmbeddingModel string
	DatabaseURL    string
	HTTPPort       string
	CoursesCSV     string
	EmbeddingsCSV  string
	FeedbackCSV    string
	LogLevel       string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		APIKey:         getEnv("API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatModel:      getEnv("CHAT_MODEL", "google/gemma-3-27b-it"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "baai/bge-m3"),
		DatabaseURL:    getEnv("DATABASE_URL", "course_advisor.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		CoursesCSV:     getEnv("COURSES_CSV", "data/courses.csv"),
		EmbeddingsCSV:  getEnv("EMBEDDINGS_CSV", "data/course_embeddings.csv"),
		FeedbackCSV:    getEnv("FEEDBACK_CSV", "feedback.csv"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
	}

	// A missing key must not kill the process: completions fail per turn and
	// the advisor surfaces the problem inside the conversation instead.
	if AppConfig.APIKey == "" {
		log.Println("Warning: API_KEY is not set, completion requests will fail until it is provided")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
