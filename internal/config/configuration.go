package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort   int           `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=text json"`

	// Relay transport
	Relay RelayConfig `mapstructure:",squash"`

	MaxStatusStreams int `mapstructure:"MAX_STATUS_STREAMS" validate:"min=1"`
}

// RelayConfig tunes the per-connection WebSocket transport.
type RelayConfig struct {
	SendQueueSize int           `mapstructure:"SEND_QUEUE_SIZE" validate:"min=1"`
	WriteTimeout  time.Duration `mapstructure:"WRITE_TIMEOUT" validate:"gt=0"`
	PingInterval  time.Duration `mapstructure:"PING_INTERVAL" validate:"gt=0"`
	PongWait      time.Duration `mapstructure:"PONG_WAIT" validate:"gtfield=PingInterval"`
	MaxFrameBytes int64         `mapstructure:"MAX_FRAME_BYTES" validate:"min=1"`
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c Config) Origins() []string {
	var out []string
	for _, part := range strings.Split(c.AllowedOrigins, ",") {
		v := strings.TrimSpace(part)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		nested := tag == "" || strings.HasPrefix(tag, ",")

		if !nested {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && nested {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
	slog.Debug("Environment variables bound", "config", c)
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8000)
	viper.SetDefault("SHUTDOWN_TIMEOUT", 5*time.Second)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("SEND_QUEUE_SIZE", 64)
	viper.SetDefault("WRITE_TIMEOUT", 5*time.Second)
	viper.SetDefault("PING_INTERVAL", 30*time.Second)
	viper.SetDefault("PONG_WAIT", 60*time.Second)
	viper.SetDefault("MAX_FRAME_BYTES", 1<<20)
	viper.SetDefault("MAX_STATUS_STREAMS", 100)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
