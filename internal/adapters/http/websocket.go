package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/busticket/internal/adapters/nats"
	"github.com/samirrijal/busticket/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or drop a trip's seat feed.
type wsMessage struct {
	Action string `json:"action"`  // "subscribe" | "unsubscribe"
	TripID string `json:"trip_id"` // trip whose seat events to relay
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// seat inventory events from NATS. A trip given as ?trip=<id> is followed
// from the start; clients may add or drop trips with
// {"action":"subscribe","trip_id":"..."}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // trip id -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		follow := func(tripID string) error {
			if _, exists := subs[tripID]; exists {
				return writeJSON(map[string]string{"status": "already subscribed", "trip_id": tripID})
			}
			s, err := nc.Subscribe(natsadapter.TripSubjects(tripID), func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				return writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
			}
			subs[tripID] = s
			return writeJSON(map[string]string{"status": "subscribed", "trip_id": tripID})
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "live feed unavailable"})
			return
		}
		if trip := c.Query("trip"); trip != "" {
			if err := follow(trip); err != nil {
				return
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
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
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.TripID == "" {
				_ = writeJSON(map[string]string{"error": "trip_id is required"})
				continue
			}

			switch m.Action {
			case "subscribe":
				_ = follow(m.TripID)

			case "unsubscribe":
				if s, exists := subs[m.TripID]; exists {
					_ = s.Unsubscribe()
					delete(subs, m.TripID)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "trip_id": m.TripID})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.TripID})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Debug("ws client disconnected", "remote", remoteAddr)
	}
}
