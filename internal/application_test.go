package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/config"
)

func TestRunApp(t *testing.T) {
	t.Run("Stops cleanly when the context is cancelled", func(t *testing.T) {
		// Given: a config without redis or tracing on a random port
		conf := &config.Config{
			HTTPPort:       "0",
			AllowedOrigins: []string{"*"},
			Session: config.Session{
				IdleTTL:      time.Minute,
				ReapInterval: 10 * time.Millisecond,
				SendTimeout:  time.Second,
			},
		}
		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		// When: the app runs and is then cancelled
		go func() { done <- RunApp(ctx, logger, conf) }()
		time.Sleep(50 * time.Millisecond)
		cancel()

		// Then: it returns without error
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("RunApp did not return")
		}
	})

	t.Run("Refuses to start when redis is enabled without a host", func(t *testing.T) {
		// Given: redis mirroring enabled but no host configured
		conf := &config.Config{
			HTTPPort: "0",
			Redis: config.Redis{
				Enabled: true,
				Port:    "6379",
			},
			Session: config.Session{
				IdleTTL:      time.Minute,
				ReapInterval: time.Second,
				SendTimeout:  time.Second,
			},
		}
		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

		// When: the app starts
		err := RunApp(context.Background(), logger, conf)

		// Then: it fails fast with the missing address error
		assert.ErrorIs(t, err, ErrAddrNotFound)
	})
}
