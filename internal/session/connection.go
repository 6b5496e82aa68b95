package session

import (
	"context"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/selection"
)

// connection binds one WebSocket to one selection store.
type connection struct {
	conn   *websocket.Conn
	store  *selection.Store
	logger *zap.Logger

	// send holds encoded messages for writePump. Snapshots carry the full
	// state, so when it is full the oldest pending message is dropped.
	send chan []byte

	snapMu  sync.Mutex
	lastSeq uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newConnection(conn *websocket.Conn, resolver selection.Resolver, persister selection.Persister, logger *zap.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, maxPendingMessages),
		ctx:    ctx,
		cancel: cancel,
	}
	c.store = selection.NewStore(resolver, persister,
		selection.WithLogger(logger.Named("selection")),
		selection.WithOnChange(c.pushSnapshot),
	)
	return c
}

// run blocks until the client disconnects, then stops background work.
func (c *connection) run() {
	observability.SessionOpened()
	defer observability.SessionClosed()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.pushSnapshot(c.store.Snapshot())
	c.readPump()

	c.cancel()
	c.store.Close()
	c.wg.Wait()
	<-writerDone
	_ = c.conn.Close()
}

// readPump reads commands until the connection fails. All reads happen here.
func (c *connection) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.pushError("", "malformed message")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *connection) dispatch(msg clientMessage) {
	switch msg.Type {
	case typeConnect:
		// Runs in the background so a later connect or disconnect can cancel it.
		c.background(func() {
			err := c.store.Connect(c.ctx, msg.Owner)
			if err != nil && !errors.Is(err, selection.ErrStaleResult) {
				c.logger.Info("connect failed", zap.String("owner", msg.Owner), zap.Error(err))
			}
		})

	case typeDisconnect:
		c.store.Disconnect()

	case typeToggle:
		if _, err := c.store.Toggle(msg.Mint); err != nil {
			c.pushError(msg.Type, err.Error())
		}

	case typePersist:
		c.background(func() {
			err := c.store.Persist(c.ctx)
			if errors.Is(err, selection.ErrInvalidState) || errors.Is(err, selection.ErrNothingSelected) {
				c.pushError(typePersist, err.Error())
			}
		})

	default:
		c.pushError(msg.Type, "unknown message type")
	}
}

func (c *connection) background(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// writePump writes queued messages and pings. All writes happen here.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.fail("failed to set the write deadline", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.fail("failed to write message", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.fail("failed to set the write deadline", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail("failed to ping", err)
				return
			}
		}
	}
}

// fail closes the socket so readPump returns.
func (c *connection) fail(reason string, err error) {
	c.logger.Debug("closing the connection", zap.String("reason", reason), zap.Error(err))
	c.cancel()
	_ = c.conn.Close()
}

// pushSnapshot queues snap unless a newer snapshot was already queued.
func (c *connection) pushSnapshot(snap selection.Snapshot) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	if snap.Seq <= c.lastSeq {
		return
	}
	c.lastSeq = snap.Seq
	c.push(snapshotMessage{Type: typeSnapshot, Snapshot: snap})
}

func (c *connection) pushError(command, text string) {
	c.push(errorMessage{Type: typeError, Command: command, Error: text})
}

func (c *connection) push(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode message", zap.Error(err))
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case c.send <- data:
			return
		default:
		}

		select {
		case <-c.send:
		default:
		}
	}
}
