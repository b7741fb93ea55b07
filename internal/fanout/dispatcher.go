// Package fanout delivers serialized game snapshots to live subscribers.
//
// Each game owns one Dispatcher. Deliveries are enqueued while the game's lock is held,
// so queue order equals the order in which mutations were accepted; a single drain
// goroutine then sends them outside of that lock, one delivery at a time.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultSendTimeout = 5 * time.Second

// Sink - receives every broadcast payload of a game in delivery order.
type Sink interface {
	Publish(ctx context.Context, gameID string, payload []byte) error
}

// Delivery - one payload and the handles that must receive it.
type Delivery struct {
	Payload    []byte
	Recipients []Subscriber
	// Broadcast marks a state change; the initial snapshot of a new subscriber is not one.
	Broadcast bool
}

type FailureFunc func(failed []Subscriber)

type Dispatcher struct {
	logger      *slog.Logger
	gameID      string
	sendTimeout time.Duration
	onFailure   FailureFunc
	sink        Sink

	mu       sync.Mutex
	queue    []Delivery
	draining bool
	idle     chan struct{}
}

type Option func(*Dispatcher)

func WithSendTimeout(timeout time.Duration) Option {
	return func(that *Dispatcher) {
		if timeout > 0 {
			that.sendTimeout = timeout
		}
	}
}

func WithSink(sink Sink) Option {
	return func(that *Dispatcher) {
		that.sink = sink
	}
}

// WithFailureHandler - called after each delivery with the handles whose send failed.
func WithFailureHandler(fn FailureFunc) Option {
	return func(that *Dispatcher) {
		that.onFailure = fn
	}
}

func NewDispatcher(logger *slog.Logger, gameID string, opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		logger:      logger.With("component", "dispatcher", "game_id", gameID),
		gameID:      gameID,
		sendTimeout: DefaultSendTimeout,
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	return dispatcher
}

// Enqueue - appends a delivery and returns immediately.
func (that *Dispatcher) Enqueue(delivery Delivery) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.queue = append(that.queue, delivery)

	if !that.draining {
		that.draining = true
		that.idle = make(chan struct{})
		go that.drain()
	}
}

// Wait - blocks until the queue is empty or ctx is done.
func (that *Dispatcher) Wait(ctx context.Context) error {
	that.mu.Lock()
	if !that.draining {
		that.mu.Unlock()
		return nil
	}
	idle := that.idle
	that.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (that *Dispatcher) drain() {
	for {
		that.mu.Lock()
		if len(that.queue) == 0 {
			that.draining = false
			close(that.idle)
			that.mu.Unlock()

			return
		}

		delivery := that.queue[0]
		that.queue[0] = Delivery{}
		that.queue = that.queue[1:]
		that.mu.Unlock()

		that.deliver(delivery)
	}
}

func (that *Dispatcher) deliver(delivery Delivery) {
	log := that.logger.With("method", "deliver")

	var (
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   []Subscriber
	)

	for _, sub := range delivery.Recipients {
		wg.Add(1)

		go func(sub Subscriber) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), that.sendTimeout)
			defer cancel()

			if err := sub.Send(ctx, delivery.Payload); err != nil {
				log.Debug("send failed, dropping subscriber", "subscriber", sub.ID(), "error", err)

				failedMu.Lock()
				failed = append(failed, sub)
				failedMu.Unlock()
			}
		}(sub)
	}

	wg.Wait()

	if len(failed) > 0 && that.onFailure != nil {
		that.onFailure(failed)
	}

	if delivery.Broadcast && that.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), that.sendTimeout)
		defer cancel()

		if err := that.sink.Publish(ctx, that.gameID, delivery.Payload); err != nil {
			log.Warn("failed to publish snapshot", "error", err)
		}
	}
}
