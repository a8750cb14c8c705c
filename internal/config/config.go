// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	PaymentProvider         `yaml:"payment_provider"`
	Push                    `yaml:"push"`
	BlobStore               `yaml:"blob_store"`
	Lifecycle               `yaml:"lifecycle"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// PaymentProvider структура для настройки клиента платёжного провайдера
type PaymentProvider struct {
	PaymentAPIURL    string        `yaml:"api_url" env:"PAYMENT_API_URL"`
	PaymentSecretKey string        `yaml:"secret_key" env:"PAYMENT_SECRET_KEY"`
	PaymentTimeout   time.Duration `yaml:"timeout" env-default:"10s"`
}

// Push структура для настройки FCM-клиента push-уведомлений
type Push struct {
	PushAPIURL    string        `yaml:"api_url" env:"PUSH_API_URL" env-default:"https://fcm.googleapis.com/fcm/send"`
	PushServerKey string        `yaml:"server_key" env:"PUSH_SERVER_KEY"`
	PushTimeout   time.Duration `yaml:"timeout" env-default:"10s"`
	ChunkSize     int           `yaml:"chunk_size" env-default:"500"`
}

// BlobStore структура для настройки клиента blob-хранилища
type BlobStore struct {
	BlobAPIURL    string        `yaml:"api_url" env:"BLOB_API_URL"`
	BlobAccessKey string        `yaml:"access_key" env:"BLOB_ACCESS_KEY"`
	BlobTimeout   time.Duration `yaml:"timeout" env-default:"15s"`
}

// Lifecycle структура с настройками периодических задач обслуживания
type Lifecycle struct {
	SweepInterval  time.Duration `yaml:"sweep_interval" env-default:"24h"`
	ReapInterval   time.Duration `yaml:"reap_interval" env-default:"24h"`
	RetentionDays  int           `yaml:"retention_days" env-default:"60"`
	SweepBatchSize int           `yaml:"sweep_batch_size" env-default:"500"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
