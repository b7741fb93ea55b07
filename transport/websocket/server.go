// Package websocket streams game snapshots to browsers and other live clients.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/fanout"
)

type Config struct {
	SendBuffer     int
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func (that Config) withDefaults() Config {
	if that.SendBuffer <= 0 {
		that.SendBuffer = 16
	}
	if that.PongWait <= 0 {
		that.PongWait = 60 * time.Second
	}
	if that.PingPeriod <= 0 || that.PingPeriod >= that.PongWait {
		that.PingPeriod = that.PongWait * 9 / 10
	}
	if that.WriteWait <= 0 {
		that.WriteWait = 10 * time.Second
	}
	if that.MaxMessageSize <= 0 {
		that.MaxMessageSize = 512
	}

	return that
}

type gameSubscriber interface {
	GetState(ctx context.Context, gameID string) (*entity.Snapshot, error)
	Subscribe(ctx context.Context, gameID string, sub fanout.Subscriber) (*entity.Snapshot, error)
	Unsubscribe(ctx context.Context, gameID string, sub fanout.Subscriber)
}

type Server struct {
	logger   *slog.Logger
	games    gameSubscriber
	conf     Config
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, games gameSubscriber, conf Config) *Server {
	conf = conf.withDefaults()
	policy := newOriginPolicy(conf.AllowedOrigins)
	log := logger.With("component", "websocket")

	return &Server{
		logger: log,
		games:  games,
		conf:   conf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if policy.check(r) {
					return true
				}

				log.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))

				return false
			},
		},
	}
}

// ServeGame - upgrades the request and streams snapshots of gameID until either side
// closes. The first message is always the game's current snapshot.
func (that *Server) ServeGame(w http.ResponseWriter, r *http.Request, gameID string) {
	log := that.logger.With("method", "ServeGame", "game_id", gameID)
	ctx := context.WithoutCancel(r.Context())

	if _, err := that.games.GetState(ctx, gameID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		log.Error("failed to read game", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(that.logger, conn, that.conf)
	go client.writePump()

	// the game may have been evicted between the check and the upgrade
	if _, err = that.games.Subscribe(ctx, gameID, client); err != nil {
		log.Info("subscribe failed", "error", err)
		client.closeWith(websocket.ClosePolicyViolation, "game not found")

		return
	}

	log.Debug("websocket subscribed", "client_id", client.ID())

	client.readPump()
	that.games.Unsubscribe(ctx, gameID, client)

	log.Debug("websocket unsubscribed", "client_id", client.ID())
}
