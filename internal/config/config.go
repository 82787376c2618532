package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LLM provider configuration
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	GeminiAPIKey         string
	GeminiModel          string
	LLMMaxTokens         int
	LLMTemperature       float64

	// Conversation limits
	MessagesPerMinute  int
	MessagesPerSession int
	SessionIdleTimeout time.Duration
	HistoryWindow      int

	// Knowledge retrieval
	RetrievalEnabled       bool
	RetrievalMinSimilarity float64
	RetrievalMaxChunks     int
	KnowledgeFile          string

	// Lead submission
	SheetsWebhookURL string
	BackupPath       string

	// Notification email
	EmailProvider     string
	NotifyRecipient   string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string

	// Per-IP HTTP rate limiting
	HTTPRateLimitPerMinute int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMMaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 500),
		LLMTemperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),

		MessagesPerMinute:  getEnvAsInt("MESSAGES_PER_MINUTE", 5),
		MessagesPerSession: getEnvAsInt("MESSAGES_PER_SESSION", 30),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		HistoryWindow:      getEnvAsInt("HISTORY_WINDOW", 10),

		RetrievalEnabled:       getEnvAsBool("RETRIEVAL_ENABLED", true),
		RetrievalMinSimilarity: getEnvAsFloat("RETRIEVAL_MIN_SIMILARITY", 0.3),
		RetrievalMaxChunks:     getEnvAsInt("RETRIEVAL_MAX_CHUNKS", 3),
		KnowledgeFile:          getEnv("KNOWLEDGE_FILE", ""),

		SheetsWebhookURL: getEnv("SHEETS_WEBHOOK_URL", ""),
		BackupPath:       getEnv("LEAD_BACKUP_PATH", "leads-backup.jsonl"),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		NotifyRecipient:   getEnv("NOTIFY_RECIPIENT", "adrian@amplifyx.com.au"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Amplifyx Technologies"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{
			"https://amplifyx.com.au",
			"https://www.amplifyx.com.au",
		}),

		HTTPRateLimitPerMinute: getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 60),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable into trimmed values.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
