package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("Empty endpoint returns a no-op shutdown", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), "", "test")

		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("Endpoint installs a provider that shuts down cleanly", func(t *testing.T) {
		// Given: an endpoint nobody listens on; export is lazy so setup still succeeds
		shutdown, err := Setup(context.Background(), "http://127.0.0.1:1/v1/traces", "test")
		require.NoError(t, err)

		// When: it is shut down with nothing buffered
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Then: no error
		assert.NoError(t, shutdown(ctx))
	})
}
