package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	AllowedOrigins []string  `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-default:"*"`
	Redis          Redis     `yaml:"redis"`
	Session        Session   `yaml:"session"`
	WebSocket      WebSocket `yaml:"websocket"`
	Telemetry      Telemetry `yaml:"telemetry"`
}

// Redis - optional snapshot mirror.
type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"1h"`
}

type Session struct {
	IdleTTL      time.Duration `yaml:"idle-ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
	ReapInterval time.Duration `yaml:"reap-interval" env:"SESSION_REAP_INTERVAL" env-default:"1m"`
	SendTimeout  time.Duration `yaml:"send-timeout" env:"SESSION_SEND_TIMEOUT" env-default:"5s"`
}

type WebSocket struct {
	SendBuffer     int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"16"`
	PingPeriod     time.Duration `yaml:"ping-period" env:"WS_PING_PERIOD" env-default:"54s"`
	PongWait       time.Duration `yaml:"pong-wait" env:"WS_PONG_WAIT" env-default:"60s"`
	WriteWait      time.Duration `yaml:"write-wait" env:"WS_WRITE_WAIT" env-default:"10s"`
	MaxMessageSize int64         `yaml:"max-message-size" env:"WS_MAX_MESSAGE_SIZE" env-default:"512"`
}

// Telemetry - tracing is off while OTLPEndpoint is empty.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp-endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tictactoe-sessions"`
}

// MustLoad - load all configurations from the yml file at path, overridden by env.
// When the file does not exist only env and defaults are used.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from env: %w", err)
		}

		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
