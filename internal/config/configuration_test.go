package config

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Success_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, 8000, cfg.WebServerPort)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, 64, cfg.Relay.SendQueueSize)
	require.Equal(t, 5*time.Second, cfg.Relay.WriteTimeout)
	require.Equal(t, 30*time.Second, cfg.Relay.PingInterval)
	require.Equal(t, 60*time.Second, cfg.Relay.PongWait)
	require.Equal(t, int64(1<<20), cfg.Relay.MaxFrameBytes)
	require.Equal(t, 100, cfg.MaxStatusStreams)
	require.Empty(t, cfg.Origins())
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("WEBSERVER_PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SEND_QUEUE_SIZE", "8")
	t.Setenv("WRITE_TIMEOUT", "250ms")
	t.Setenv("PING_INTERVAL", "10s")
	t.Setenv("PONG_WAIT", "25s")
	t.Setenv("ALLOWED_ORIGINS", "https://radio.example.com, ,http://localhost:8000")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.WebServerPort)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 8, cfg.Relay.SendQueueSize)
	require.Equal(t, 250*time.Millisecond, cfg.Relay.WriteTimeout)
	require.Equal(t, 10*time.Second, cfg.Relay.PingInterval)
	require.Equal(t, 25*time.Second, cfg.Relay.PongWait)
	require.Equal(t, []string{"https://radio.example.com", "http://localhost:8000"}, cfg.Origins())
}

func TestLoadConfig_ValidationError(t *testing.T) {
	t.Run("pong wait must exceed ping interval", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		t.Setenv("PING_INTERVAL", "30s")
		t.Setenv("PONG_WAIT", "10s")

		cfg, err := LoadConfig(context.Background())
		require.Error(t, err)
		require.Nil(t, cfg)
	})

	t.Run("unknown log level", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		t.Setenv("LOG_LEVEL", "verbose")

		cfg, err := LoadConfig(context.Background())
		require.Error(t, err)
		require.Nil(t, cfg)
	})

	t.Run("empty send queue", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		t.Setenv("SEND_QUEUE_SIZE", "0")

		cfg, err := LoadConfig(context.Background())
		require.Error(t, err)
		require.Nil(t, cfg)
	})
}
