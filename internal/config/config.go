package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"crypto-tracker/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel      string
	MaxRetries    int
	RetryDelay    time.Duration
	WatchlistPath string
	HTTP          HTTPConfig
	Trace         TraceConfig
	Cache         CacheConfig
	Kafka         KafkaConfig
	Database      DatabaseConfig
	Neo4j         Neo4jConfig
	Chains        map[models.BlockchainName]ChainConfig
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout time.Duration
}

// TraceConfig holds traversal defaults
type TraceConfig struct {
	MaxDepth int
	FanOut   int
}

// CacheConfig holds the on-disk explorer response cache configuration.
// An empty Path disables the cache.
type CacheConfig struct {
	Path string
	TTL  time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool
	BrokerAddress string
	Topic         string
	BatchSize     int
	BatchTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Neo4jConfig holds graph database export configuration
type Neo4jConfig struct {
	Enabled  bool
	URI      string
	User     string
	Password string
	Database string
}

// ChainConfig holds configuration for each blockchain
type ChainConfig struct {
	Endpoint        string
	ApiKey          string
	RateLimit       float64
	ExplorerBaseURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine, variables may be set externally.
	_ = godotenv.Load()

	config := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MaxRetries:    getEnvAsInt("MAX_RETRIES", 2),
		RetryDelay:    time.Duration(getEnvAsInt("RETRY_DELAY", 2)) * time.Second,
		WatchlistPath: getEnv("WATCHLIST_PATH", ""),
		HTTP: HTTPConfig{
			Timeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
		},
		Trace: TraceConfig{
			MaxDepth: getEnvAsInt("TRACE_MAX_DEPTH", 2),
			FanOut:   getEnvAsInt("TRACE_FAN_OUT", 5),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", ""),
			TTL:  time.Duration(getEnvAsInt("CACHE_TTL", 600)) * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "watchlist-matches"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 10),
			BatchTimeout:  time.Duration(getEnvAsInt("KAFKA_BATCH_TIMEOUT", 1)) * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "crypto_tracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Neo4j: Neo4jConfig{
			Enabled:  getEnvAsBool("NEO4J_ENABLED", false),
			URI:      getEnv("NEO4J_URI", "neo4j://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		},
		Chains: make(map[models.BlockchainName]ChainConfig),
	}

	config.Chains[models.Bitcoin] = ChainConfig{
		Endpoint:        getEnv("BITCOIN_API_ENDPOINT", "https://api.blockcypher.com/v1/btc/main"),
		ApiKey:          getEnv("BITCOIN_API_KEY", ""),
		RateLimit:       getEnvAsFloat("BITCOIN_RATE_LIMIT", 3),
		ExplorerBaseURL: getEnv("BITCOIN_EXPLORER_URL", "https://blockchair.com/bitcoin"),
	}

	config.Chains[models.Ethereum] = ChainConfig{
		Endpoint:        getEnv("ETHEREUM_API_ENDPOINT", "https://api.etherscan.io/api"),
		ApiKey:          getEnv("ETHERSCAN_API_KEY", ""),
		RateLimit:       getEnvAsFloat("ETHEREUM_RATE_LIMIT", 5),
		ExplorerBaseURL: getEnv("ETHEREUM_EXPLORER_URL", "https://etherscan.io"),
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
