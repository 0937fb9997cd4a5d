package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds the sensor-feed broker settings.
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// AuthConfig holds token issuing and password hashing settings.
type AuthConfig struct {
	JWTSecret          string
	TokenExpireMinutes int
	BcryptCost         int
}

// UploadConfig holds the audio upload storage settings.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// ClassifierConfig holds the cry-classifier service settings.
type ClassifierConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// CacheConfig holds the latest-reading cache settings.
type CacheConfig struct {
	LatestKeyPrefix string
	LatestSuffix    string
	LatestTTL       int // seconds
}

// Config is the full babycare-backend configuration.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database   DatabaseConfig
	Redis      RedisConfig
	MQTT       MQTTConfig
	Auth       AuthConfig
	Upload     UploadConfig
	Classifier ClassifierConfig
	Cache      CacheConfig

	Ingest struct {
		QueueSize     int
		Workers       int
		DefaultUserID int64
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables with local-dev defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "babycare")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "true") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "babycare-backend")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "baby/health")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "supersecretkey")
	cfg.Auth.TokenExpireMinutes = parseInt(getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "30"), 30)
	cfg.Auth.BcryptCost = parseInt(getEnv("BCRYPT_COST", "10"), 10)

	cfg.Upload.Dir = getEnv("UPLOAD_DIR", "uploads")
	cfg.Upload.MaxBytes = int64(parseInt(getEnv("MAX_UPLOAD_SIZE", "10485760"), 10*1024*1024))

	cfg.Classifier.BaseURL = getEnv("CLASSIFIER_URL", "http://localhost:8501")
	cfg.Classifier.TimeoutSeconds = parseInt(getEnv("CLASSIFIER_TIMEOUT_SECONDS", "30"), 30)

	cfg.Cache.LatestKeyPrefix = getEnv("CACHE_LATEST_KEY_PREFIX", "babycare:user:")
	cfg.Cache.LatestSuffix = getEnv("CACHE_LATEST_SUFFIX", ":latest")
	cfg.Cache.LatestTTL = parseInt(getEnv("CACHE_LATEST_TTL", "600"), 600)

	cfg.Ingest.QueueSize = parseInt(getEnv("INGEST_QUEUE_SIZE", "256"), 256)
	cfg.Ingest.Workers = parseInt(getEnv("INGEST_WORKERS", "4"), 4)
	cfg.Ingest.DefaultUserID = int64(parseInt(getEnv("INGEST_DEFAULT_USER_ID", "1"), 1))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
