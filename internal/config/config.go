package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CHATCORE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CHATCORE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AIProvider returns the configured AI answer provider.
// Defaults to "qwen" if not set.
// Valid values: qwen, openai, mock
func AIProvider() string {
	p := os.Getenv("AI_PROVIDER")
	if p == "" {
		return "qwen"
	}
	return p
}

func QwenAPIKey() string {
	return os.Getenv("QWEN_API_KEY")
}

// QwenAPIURL returns the DashScope text-generation endpoint, overridable
// for testing against a local stub.
func QwenAPIURL() string {
	u := os.Getenv("QWEN_API_URL")
	if u == "" {
		return "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
	}
	return u
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// AIAPIKey returns the API key for the configured AI provider.
func AIAPIKey() string {
	switch AIProvider() {
	case "openai":
		return OpenAIAPIKey()
	case "mock":
		return ""
	default:
		return QwenAPIKey()
	}
}

// CommunityProvider returns the configured community fallback provider.
// Defaults to "webhook" if not set.
// Valid values: webhook, mock
func CommunityProvider() string {
	p := os.Getenv("COMMUNITY_PROVIDER")
	if p == "" {
		return "webhook"
	}
	return p
}

func DiscordWebhookURL() string {
	return os.Getenv("DISCORD_WEBHOOK_URL")
}

// RuleCacheTTL returns the freshness window for the cached active rule set.
// Defaults to 5 minutes.
func RuleCacheTTL() time.Duration {
	return durationEnv("RULE_CACHE_TTL", 5*time.Minute)
}

// AITimeout bounds a single AI capability call. Defaults to 30s.
func AITimeout() time.Duration {
	return durationEnv("AI_TIMEOUT", 30*time.Second)
}

// CommunityTimeout bounds a single community capability call. Defaults to 10s.
func CommunityTimeout() time.Duration {
	return durationEnv("COMMUNITY_TIMEOUT", 10*time.Second)
}

// StoreTimeout bounds a single durable-store call. Defaults to 5s.
func StoreTimeout() time.Duration {
	return durationEnv("STORE_TIMEOUT", 5*time.Second)
}

// MaxMessageLen is the maximum accepted chat message length in characters.
// Defaults to 2000.
func MaxMessageLen() int {
	n, err := strconv.Atoi(os.Getenv("MAX_MESSAGE_LEN"))
	if err != nil || n <= 0 {
		return 2000
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
