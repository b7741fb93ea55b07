package websocket

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClientClosed = errors.New("websocket client is closed")

// Client - one WebSocket connection subscribed to one game. Payloads pass through a
// buffered queue drained by writePump, so Send never touches the socket.
type Client struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger
	conf   Config

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(logger *slog.Logger, conn *websocket.Conn, conf Config) *Client {
	id := uuid.NewString()

	return &Client{
		id:     id,
		conn:   conn,
		logger: logger.With("component", "ws_client", "client_id", id),
		conf:   conf,
		send:   make(chan []byte, conf.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (that *Client) ID() string {
	return that.id
}

// Send - queues payload for writing. Fails once the connection is closed or when the
// queue stays full until ctx is done; a client that falls behind is closed, so the peer
// sees the disconnect and readPump unsubscribes it.
func (that *Client) Send(ctx context.Context, payload []byte) error {
	select {
	case <-that.done:
		return ErrClientClosed
	default:
	}

	select {
	case that.send <- payload:
		return nil
	case <-that.done:
		return ErrClientClosed
	case <-ctx.Done():
		that.logger.Info("client too slow, closing connection")
		that.Close()

		return ctx.Err()
	}
}

// Close - idempotent.
func (that *Client) Close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

// closeWith - sends a close frame with code and reason, then closes.
func (that *Client) closeWith(code int, reason string) {
	deadline := time.Now().Add(that.conf.WriteWait)
	if err := that.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		that.logError("failed to write close frame", err)
	}

	that.Close()
	_ = that.conn.Close()
}

// readPump - inbound frames are only used as keep-alive. Returns when the peer goes away.
func (that *Client) readPump() {
	defer that.Close()

	that.conn.SetReadLimit(that.conf.MaxMessageSize)

	if err := that.conn.SetReadDeadline(time.Now().Add(that.conf.PongWait)); err != nil {
		that.logError("failed to set read deadline", err)
		return
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(that.conf.PongWait))
	})

	for {
		if _, _, err := that.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				that.logError("unexpected close", err)
			}

			return
		}
	}
}

func (that *Client) writePump() {
	ticker := time.NewTicker(that.conf.PingPeriod)
	defer func() {
		ticker.Stop()
		that.Close()
		_ = that.conn.Close()
	}()

	for {
		select {
		case payload := <-that.send:
			if err := that.write(websocket.TextMessage, payload); err != nil {
				that.logError("failed to write snapshot", err)
				return
			}
		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				that.logError("failed to write ping", err)
				return
			}
		case <-that.done:
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (that *Client) write(messageType int, payload []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(that.conf.WriteWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(messageType, payload)
}

func (that *Client) logError(msg string, err error) {
	if isExpectedCloseError(err) {
		that.logger.Debug(msg, "error", err)
		return
	}

	that.logger.Warn(msg, "error", err)
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}

	errStr := err.Error()

	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
