package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    int
	PublicHost    string
	SessionSecret string
	Database      DatabaseConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Minio         MinioConfig
	GCS           GCSConfig
	MQ            MQConfig
	RabbitMQ      RabbitMQConfig
	PubSub        PubSubConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// RedisConfig points at the session cache. An empty Host selects the
// in-process cache backend instead.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig selects the object storage backend ("minio" or "gcs").
type StorageConfig struct {
	Backend string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// MQConfig selects the event bus backend ("rabbitmq", "pubsub" or "none").
type MQConfig struct {
	Backend string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "loopfeed"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "loopfeed_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	redisConfig := RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnvInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 1),
	}

	minioConfig := MinioConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		Bucket:    getEnv("MINIO_BUCKET_NAME", "loopfeed-media"),
		UseSSL:    getEnvBool("MINIO_USE_HTTPS", false),
	}

	gcsConfig := GCSConfig{
		Bucket:          getEnv("GCS_BUCKET", ""),
		ProjectID:       getEnv("GCS_PROJECT_ID", ""),
		CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
	}

	rabbitConfig := RabbitMQConfig{
		URL:             getEnv("RABBITMQ_URL", ""),
		QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
		QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTODELETE", false),
	}

	pubsubConfig := PubSubConfig{
		ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
		CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
	}

	return Config{
		ServerPort:    getEnvInt("SERVER_PORT", 8080),
		PublicHost:    getEnv("PUBLIC_HOST", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		Database:      dbConfig,
		Redis:         redisConfig,
		Storage:       StorageConfig{Backend: getEnv("STORAGE_BACKEND", "minio")},
		Minio:         minioConfig,
		GCS:           gcsConfig,
		MQ:            MQConfig{Backend: getEnv("MQ_BACKEND", "none")},
		RabbitMQ:      rabbitConfig,
		PubSub:        pubsubConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
