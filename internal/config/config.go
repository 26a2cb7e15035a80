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
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RabbitURL               string `yaml:"rabbit_url"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Lockout                 `yaml:"lockout"`
	PaymentGateway          `yaml:"payment_gateway"`
	Receipts                `yaml:"receipts"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"30m"`
}

// Lockout настройки временной блокировки учетной записи
// после серии неудачных попыток входа.
type Lockout struct {
	MaxFailedAttempts int           `yaml:"max_failed_attempts" env-default:"5"`
	LockoutDuration   time.Duration `yaml:"lockout_duration" env-default:"30m"`
}

// PaymentGateway настройки внешнего платежного шлюза: ключ API,
// секрет для проверки подписи вебхуков и адрес фронтенда для редиректов.
type PaymentGateway struct {
	APIKey        string `yaml:"api_key" env:"GATEWAY_API_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"GATEWAY_WEBHOOK_SECRET"`
	FrontendURL   string `yaml:"frontend_url" env-default:"http://localhost:5173"`
	Currency      string `yaml:"currency" env-default:"KES"`
}

// Receipts настройки нумерации квитанций.
type Receipts struct {
	NumberPrefix string `yaml:"number_prefix" env-default:"GF"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной окружения CONFIG_PATH
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
