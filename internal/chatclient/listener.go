package chatclient

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whispr/internal/delivery"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Listener keeps one websocket open to the delivery coordinator and
// feeds every event into the engine. The stream is lossy; after every
// (re)connect the engine resyncs from the query surface before events
// are trusted again.
type Listener struct {
	engine *Engine
	wsURL  string
	token  string
	logger *zap.Logger
}

func NewListener(engine *Engine, baseURL, token string) *Listener {
	wsURL := strings.TrimRight(baseURL, "/") + "/ws"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Listener{
		engine: engine,
		wsURL:  wsURL,
		token:  token,
		logger: zap.L().With(zap.String("component", "chatclient.listener")),
	}
}

// Run connects, resyncs, and consumes events until ctx is cancelled,
// reconnecting with backoff on every drop.
func (l *Listener) Run(ctx context.Context) error {
	delay := reconnectBaseDelay
	for {
		if err := l.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("connection lost, reconnecting", zap.Error(err), zap.Duration("delay", delay))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (l *Listener) runOnce(ctx context.Context) error {
	// Per-connection context so the watcher goroutine dies with this
	// connection instead of outliving it until the listener stops.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL+"?token="+l.token, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Anything missed while disconnected is recovered here, not by
	// event replay.
	if err := l.engine.Resync(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var evt delivery.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			l.logger.Warn("undecodable event skipped", zap.Error(err))
			continue
		}
		if err := l.engine.Apply(evt); err != nil {
			l.logger.Warn("event not applied", zap.String("event", string(evt.Name)), zap.Error(err))
		}
	}
}
