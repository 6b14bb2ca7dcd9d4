// Package feed implements the Live Engine's price-feed adapter: a
// gorilla/websocket connection that parses exchange ticker/book-delta
// frames into the price-feed contract from spec section 6, drops
// late/out-of-order ticks, and reconnects under internal/recovery's
// backoff policy. Grounded on the teacher's
// internal/exchange/websocket.go WebSocketManager (dial, read loop,
// reconnect trigger), adapted from a fire-and-forget callback fan-out to a
// typed channel the Live Engine's per-pair actors read from directly.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/internal/recovery"
	"github.com/vantrade/gridbot/pkg/types"
)

// Tick is a single (pair, price, timestamp) observation.
type Tick struct {
	Pair      string
	Price     float64
	Timestamp time.Time
}

// Update is one message off the feed: either a Tick or a BookDelta, never
// both.
type Update struct {
	Tick *Tick
	Book *types.BookUpdate
}

// frame is the wire shape this feed expects from the exchange: a ticker
// push identified by Price, or an order-book delta identified by Side.
type frame struct {
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Side      string  `json:"side,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// Logger is the logging surface the feed needs, matching
// internal/recovery's Logger interface so the same value can be passed to
// both without a wrapper.
type Logger interface {
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// WebSocketFeed consumes a single exchange WebSocket stream carrying
// multiple pairs' ticks and book deltas, enforcing non-decreasing
// per-pair timestamps and reconnecting on read errors.
type WebSocketFeed struct {
	url     string
	logger  Logger
	rec     *recovery.Handler
	dialer  *websocket.Dialer
	updates chan Update

	mu       sync.Mutex
	lastSeen map[string]time.Time // pair -> last accepted tick timestamp
	conn     *websocket.Conn      // current connection, closed by Close to unblock a pending read

	stop      chan struct{} // closed once by Close to signal the read loop to stop
	done      chan struct{} // closed once by Run when it returns
	closeOnce sync.Once
}

// New creates an unconnected feed for url. logger may be nil to discard
// log output (e.g. in backtests that never use this package).
func New(url string, logger Logger) *WebSocketFeed {
	if logger == nil {
		logger = noopLogger{}
	}
	return &WebSocketFeed{
		url:      url,
		logger:   logger,
		rec:      recovery.New(logger),
		dialer:   websocket.DefaultDialer,
		updates:  make(chan Update, 256),
		lastSeen: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Updates returns the channel the Live Engine's per-pair actors read
// ticks and book deltas from. Closed when Run returns.
func (f *WebSocketFeed) Updates() <-chan Update {
	return f.updates
}

// Run dials the feed and reads frames until ctx is cancelled, reconnecting
// under the shared backoff/quiesce policy on read errors. It returns once
// quiesced (5 consecutive failures) or ctx is done.
func (f *WebSocketFeed) Run(ctx context.Context) error {
	defer close(f.updates)
	defer close(f.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.stopped() {
			return nil
		}

		conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
		if err != nil {
			result := f.rec.HandleError(wrapFeedErr(err), "feed", "connect", attempt)
			if result.ShouldStop || result.Quiesce {
				return fmt.Errorf("feed quiesced: %s", result.Message)
			}
			attempt++
			if !f.sleepOrDone(ctx, result.Delay) {
				return ctx.Err()
			}
			continue
		}

		attempt = 0
		f.rec.Reset()
		f.setConn(conn)
		err = f.readLoop(ctx, conn)
		f.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.stopped() {
			return nil
		}
		if err != nil {
			result := f.rec.HandleError(wrapFeedErr(err), "feed", "read", 0)
			if result.ShouldStop || result.Quiesce {
				return fmt.Errorf("feed quiesced: %s", result.Message)
			}
		}
	}
}

func (f *WebSocketFeed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if f.stopped() {
			return nil
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.stopped() {
				return nil
			}
			return err
		}
		f.handleFrame(message)
	}
}

// stopped reports whether Close has been called.
func (f *WebSocketFeed) stopped() bool {
	select {
	case <-f.stop:
		return true
	default:
		return false
	}
}

// setConn records the feed's current connection so Close can close it out
// from under a blocked ReadMessage.
func (f *WebSocketFeed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
}

// handleFrame parses a single wire frame and, if it is not a late/
// out-of-order tick, forwards it to Updates. Malformed frames are logged
// and dropped rather than killing the connection.
func (f *WebSocketFeed) handleFrame(message []byte) {
	var fr frame
	if err := json.Unmarshal(message, &fr); err != nil {
		f.logger.Warning("feed: malformed frame: %v", err)
		return
	}
	if fr.Pair == "" {
		return
	}

	if fr.Side != "" {
		f.updates <- Update{Book: &types.BookUpdate{
			Pair:    fr.Pair,
			Side:    types.Side(fr.Side),
			Price:   fr.Price,
			NewSize: fr.Size,
		}}
		return
	}

	ts := time.UnixMilli(fr.Timestamp)
	if f.isLate(fr.Pair, ts) {
		return
	}
	f.updates <- Update{Tick: &Tick{Pair: fr.Pair, Price: fr.Price, Timestamp: ts}}
}

// isLate reports whether ts is not strictly after the last accepted
// timestamp for pair, per the price-feed contract's non-decreasing
// ordering guarantee; out-of-order and duplicate ticks are dropped.
func (f *WebSocketFeed) isLate(pair string, ts time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.lastSeen[pair]
	if ok && !ts.After(last) {
		return true
	}
	f.lastSeen[pair] = ts
	return false
}

// Close signals the feed's read loop to stop, unblocks a pending read by
// closing the current connection, and waits for Run to return.
func (f *WebSocketFeed) Close() {
	f.closeOnce.Do(func() {
		close(f.stop)
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
	<-f.done
}

func wrapFeedErr(err error) *boterrors.BotError {
	return boterrors.Wrap(err, boterrors.CategoryFeed, "feed", "websocket")
}

func (f *WebSocketFeed) sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil && !f.stopped()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-f.stop:
		return false
	case <-timer.C:
		return true
	}
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})    {}
func (noopLogger) Warning(string, ...interface{}) {}
func (noopLogger) Error(string, ...interface{})   {}
func (noopLogger) Debug(string, ...interface{})   {}
