package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/hikepal/internal/adapters/nats"
	"github.com/samirrijal/hikepal/internal/core/usecases"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow the relayed event kinds.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Kind   string `json:"kind"`   // "message" | "state" | "presence" | "scene"
}

var wsKinds = map[string]bool{
	natsadapter.EventMessage:  true,
	natsadapter.EventState:    true,
	natsadapter.EventPresence: true,
	natsadapter.EventScene:    true,
}

// SessionSocketHandler upgrades to WebSocket and relays one session's NATS
// events to the client. Every kind is relayed until the client unsubscribes
// from it. The socket closes when the session ends.
func SessionSocketHandler(nc *nats.Conn, sessions *usecases.SessionService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		logger := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sess, err := sessions.Get(sessionID)
		if err != nil {
			_ = writeJSON(map[string]string{"error": err.Error()})
			return
		}
		if nc == nil {
			_ = writeJSON(map[string]string{"error": "event stream not available"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		var kmu sync.RWMutex
		muted := make(map[string]bool)

		sub, err := nc.Subscribe(natsadapter.SessionWildcard(sessionID), func(msg *nats.Msg) {
			kmu.RLock()
			skip := muted[natsadapter.EventFromSubject(msg.Subject)]
			kmu.RUnlock()
			if skip {
				return
			}
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			logger.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		_ = writeJSON(map[string]interface{}{"type": "snapshot", "data": sess.Snapshot()})

		// Keep-alive ping; stops when the session ends or the client leaves
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-sess.Done():
					_ = writeJSON(map[string]string{"type": "closed", "session_id": sessionID})
					mu.Lock()
					_ = c.Close()
					mu.Unlock()
					return
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if !wsKinds[m.Kind] {
				_ = writeJSON(map[string]string{"error": "unknown kind: " + m.Kind})
				continue
			}

			switch m.Action {
			case "subscribe":
				kmu.Lock()
				delete(muted, m.Kind)
				kmu.Unlock()
				_ = writeJSON(map[string]string{"status": "subscribed", "kind": m.Kind})
			case "unsubscribe":
				kmu.Lock()
				muted[m.Kind] = true
				kmu.Unlock()
				_ = writeJSON(map[string]string{"status": "unsubscribed", "kind": m.Kind})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		logger.Info("ws client disconnected")
	}
}
