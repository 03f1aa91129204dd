package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every externally tunable knob of the capture service.
type Config struct {
	HTTPPort        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// External services.
	DetectionURL       string // WebSocket endpoint of the detection service
	CatalogBaseURL     string
	TransactionBaseURL string

	// Capture session tuning.
	MaxSessionDuration time.Duration
	LongPressThreshold time.Duration
	SampleInterval     time.Duration
	FrameSize          int // frames are stretched to FrameSize x FrameSize
	JPEGQuality        int
	DrainTimeout       time.Duration // how long to wait for in-flight frames after a session ends

	// Infrastructure.
	RedisAddr     string
	MongoURI      string
	MongoDatabase string
	KafkaBrokers  []string
	SalesTopic    string

	// Camera simulation source, used when no real capture hardware is wired.
	FrameDir string

	StoreID string
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DetectionURL:       getEnv("DETECTION_URL", "ws://localhost:8765/ws"),
		CatalogBaseURL:     getEnv("CATALOG_BASE_URL", "http://localhost:3000"),
		TransactionBaseURL: getEnv("TRANSACTION_BASE_URL", "http://localhost:3000"),

		MaxSessionDuration: getDuration("MAX_SESSION_DURATION", 30*time.Second),
		LongPressThreshold: getDuration("LONG_PRESS_THRESHOLD", time.Second),
		SampleInterval:     getDuration("SAMPLE_INTERVAL", 100*time.Millisecond),
		FrameSize:          getInt("FRAME_SIZE", 640),
		JPEGQuality:        getInt("JPEG_QUALITY", 80),
		DrainTimeout:       getDuration("DRAIN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "shop_vision"),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		SalesTopic:    getEnv("SALES_TOPIC", "sales-events"),

		FrameDir: getEnv("FRAME_DIR", "./frames"),

		StoreID: getEnv("STORE_ID", "default-store"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
