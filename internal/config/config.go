// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Environment string          `yaml:"environment" validate:"required"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	NATS        NATSConfig      `yaml:"nats"`
	MQTT        MQTTConfig      `yaml:"mqtt"`
	Tracking    TrackingConfig  `yaml:"tracking"`
	WebSocket   WebSocketConfig `yaml:"websocket"`
	Log         LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	CorsOrigins     []string      `yaml:"corsOrigins" validate:"min=1"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver selects the location store: postgres or memory
	Driver       string        `yaml:"driver" validate:"oneof=postgres memory"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	MaxOpenConns int           `yaml:"maxOpenConns" validate:"gte=1"`
	MaxIdleConns int           `yaml:"maxIdleConns" validate:"gte=0"`
	MaxLifetime  time.Duration `yaml:"maxLifetime"`
	SSLMode      string        `yaml:"sslMode"`
}

// ConnString returns the Postgres connection URL
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds session store configuration
type RedisConfig struct {
	Addr       string        `yaml:"addr" validate:"required"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db" validate:"gte=0"`
	KeyPrefix  string        `yaml:"keyPrefix"`
	SessionTTL time.Duration `yaml:"sessionTTL" validate:"gte=0"`
}

// NATSConfig holds event bus configuration. An empty URL disables publishing.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subjectPrefix" validate:"required"`
	MaxReconnects  int           `yaml:"maxReconnects"`
	ReconnectWait  time.Duration `yaml:"reconnectWait"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// MQTTConfig holds device ingest configuration. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic" validate:"required"`
	QoS      int    `yaml:"qos" validate:"gte=0,lte=2"`
}

// TrackingConfig holds retention and ingest settings
type TrackingConfig struct {
	Retention     time.Duration `yaml:"retention" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweepInterval" validate:"gt=0"`
	IngestTimeout time.Duration `yaml:"ingestTimeout" validate:"gt=0"`
}

// WebSocketConfig holds push channel configuration
type WebSocketConfig struct {
	WriteWait      time.Duration `yaml:"writeWait" validate:"gt=0"`
	PongWait       time.Duration `yaml:"pongWait" validate:"gt=0"`
	PingPeriod     time.Duration `yaml:"pingPeriod" validate:"gt=0,ltfield=PongWait"`
	MaxMessageSize int64         `yaml:"maxMessageSize" validate:"gt=0"`
	SendBuffer     int           `yaml:"sendBuffer" validate:"gt=0"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  60 * time.Second,
			CorsOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "postgres",
			Database:     "livetrack",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			MaxLifetime:  5 * time.Minute,
			SSLMode:      "disable",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "livetrack:session:",
		},
		NATS: NATSConfig{
			SubjectPrefix:  "tracking",
			MaxReconnects:  10,
			ReconnectWait:  1 * time.Second,
			ConnectTimeout: 2 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID: "livetrack",
			Topic:    "tracking/+/location",
			QoS:      1,
		},
		Tracking: TrackingConfig{
			Retention:     24 * time.Hour,
			SweepInterval: 10 * time.Minute,
			IngestTimeout: 5 * time.Second,
		},
		WebSocket: WebSocketConfig{
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			PingPeriod:     (60 * time.Second * 9) / 10,
			MaxMessageSize: 64 * 1024,
			SendBuffer:     256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables (including a .env file), in that
// order of precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	config := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &config); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&config)

	return config, validate(config)
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("APP_ENV", c.Environment)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("SERVER_REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.CorsOrigins = getEnvAsSlice("SERVER_CORS_ORIGINS", c.Server.CorsOrigins)

	c.Database.Driver = getEnv("LOCATION_STORE", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getEnvAsDuration("DB_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.KeyPrefix = getEnv("REDIS_SESSION_PREFIX", c.Redis.KeyPrefix)
	c.Redis.SessionTTL = getEnvAsDuration("REDIS_SESSION_TTL", c.Redis.SessionTTL)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)
	c.NATS.MaxReconnects = getEnvAsInt("NATS_MAX_RECONNECTS", c.NATS.MaxReconnects)
	c.NATS.ReconnectWait = getEnvAsDuration("NATS_RECONNECT_WAIT", c.NATS.ReconnectWait)
	c.NATS.ConnectTimeout = getEnvAsDuration("NATS_CONNECT_TIMEOUT", c.NATS.ConnectTimeout)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.Topic = getEnv("MQTT_TOPIC", c.MQTT.Topic)
	c.MQTT.QoS = getEnvAsInt("MQTT_QOS", c.MQTT.QoS)

	c.Tracking.Retention = getEnvAsDuration("TRACKING_RETENTION", c.Tracking.Retention)
	c.Tracking.SweepInterval = getEnvAsDuration("TRACKING_SWEEP_INTERVAL", c.Tracking.SweepInterval)
	c.Tracking.IngestTimeout = getEnvAsDuration("TRACKING_INGEST_TIMEOUT", c.Tracking.IngestTimeout)

	c.WebSocket.WriteWait = getEnvAsDuration("WS_WRITE_WAIT", c.WebSocket.WriteWait)
	c.WebSocket.PongWait = getEnvAsDuration("WS_PONG_WAIT", c.WebSocket.PongWait)
	c.WebSocket.PingPeriod = getEnvAsDuration("WS_PING_PERIOD", c.WebSocket.PingPeriod)
	c.WebSocket.MaxMessageSize = int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", int(c.WebSocket.MaxMessageSize)))
	c.WebSocket.SendBuffer = getEnvAsInt("WS_SEND_BUFFER", c.WebSocket.SendBuffer)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// validate checks if config is valid
func validate(config Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Environment != "development" {
		for _, origin := range config.Server.CorsOrigins {
			if origin == "*" {
				return fmt.Errorf("wildcard CORS origin is only allowed in development")
			}
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
