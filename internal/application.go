package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/config"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/registry"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/telemetry"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/rest"
	"github.com/rocketscienceinc/tictactoe-sessions/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until ctx is cancelled or a component fails.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	shutdownTracing, err := telemetry.Setup(ctx, conf.Telemetry.OTLPEndpoint, conf.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("could not set up tracing: %w", err)
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("could not flush traces", "error", err)
		}
	}()

	dispatcherOpts := []fanout.Option{fanout.WithSendTimeout(conf.Session.SendTimeout)}

	var mirror repository.SnapshotRepository
	if conf.Redis.Enabled {
		if conf.Redis.Host == "" {
			return ErrAddrNotFound
		}

		redisAddr := conf.Redis.GetRedisAddr()

		client, err := storage.NewRedis(ctx, redisAddr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err := client.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		mirror = repository.NewSnapshotRepository(client, conf.Redis.SnapshotTTL)
		dispatcherOpts = append(dispatcherOpts, fanout.WithSink(mirror))

		log.Info("mirroring snapshots to redis", "addr", redisAddr)
	}

	sessions := registry.New(logger, registry.WithDispatcherOptions(dispatcherOpts...))
	gameManager := usecase.NewGameManager(logger, sessions)

	reaper := usecase.NewReaper(logger, sessions, mirror, conf.Session.IdleTTL, conf.Session.ReapInterval)

	sockets := websocket.New(logger, gameManager, websocket.Config{
		SendBuffer:     conf.WebSocket.SendBuffer,
		PingPeriod:     conf.WebSocket.PingPeriod,
		PongWait:       conf.WebSocket.PongWait,
		WriteWait:      conf.WebSocket.WriteWait,
		MaxMessageSize: conf.WebSocket.MaxMessageSize,
		AllowedOrigins: conf.AllowedOrigins,
	})

	httpServer := rest.New(logger, conf.HTTPPort, rest.NewRouter(logger, gameManager, sockets, conf.AllowedOrigins))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(httpServer.Start)

	group.Go(func() error {
		return reaper.Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if err = group.Wait(); err != nil {
		return fmt.Errorf("application stopped: %w", err)
	}

	log.Info("application stopped")

	return nil
}
