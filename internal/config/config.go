package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel string

	// client
	APIBaseURL     string
	HTTPTimeout    time.Duration
	ClientStore    string // "sqlite", "mysql" or "redis"
	ClientStoreDSN string
	SessionKey     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// service
	ListenAddr            string
	DBDSN                 string
	JWTSecret             string
	SessionTTL            time.Duration
	ChatContextWindowSize int
	CORSAllowedOrigins    []string

	// automated responder
	Responder     string // "canned" or "ollama"
	OllamaBaseURL string
	OllamaModel   string

	// rabbitMQ, optional
	RabbitURL   string
	RabbitQueue string
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getListEnv(key, def string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func Load() Config {
	windowSize := getIntEnv("CHAT_CONTEXT_WINDOW_SIZE", 20)
	if windowSize <= 0 || windowSize > 100 {
		windowSize = 20
	}

	return Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8001/api"), "/"),
		HTTPTimeout:    getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		ClientStore:    strings.ToLower(getEnv("CLIENT_STORE", "sqlite")),
		ClientStoreDSN: getEnv("CLIENT_STORE_DSN", "file:chat-client.db"),
		SessionKey:     getEnv("SESSION_KEY", "activeUser"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		ListenAddr: getEnv("LISTEN_ADDR", ":8001"),
		// DSN demo (mysql):
		// app:apppass@tcp(127.0.0.1:3306)/messages?charset=utf8mb4&parseTime=true&loc=Local
		DBDSN:                 getEnv("DB_DSN", "file:messages.db"),
		JWTSecret:             getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTL:            getDurationEnv("SESSION_TTL", 24*time.Hour),
		ChatContextWindowSize: windowSize,
		CORSAllowedOrigins:    getListEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),

		Responder:     strings.ToLower(getEnv("RESPONDER", "canned")),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3:latest"),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: getEnv("RABBIT_QUEUE", "message_events"),
	}
}
