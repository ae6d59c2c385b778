package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket streaming of plan run events, mirroring the SSE stream for
// clients that prefer a bidirectional transport.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
	RunID string `json:"runId"`
}

// PlanWSHandler handles /v1/ws. Protocol: client sends connection_init,
// then subscribe messages carrying a runId; server forwards broker events
// as next messages keyed by the subscription id.
func (s *Server) PlanWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		runID string
		ch    chan SSEEvent
	}
	subs := map[string]sub{}
	defer func() {
		for _, sb := range subs {
			s.Broker.Unsubscribe(sb.runID, sb.ch)
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	writeMu := &wsWriter{conn: conn}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = writeMu.write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(25 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						return
					}
				}
			}()
		case "subscribe":
			var p wsSubscribePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RunID == "" || msg.ID == "" {
				_ = writeMu.write(wsMessage{Type: "error", ID: msg.ID, Payload: json.RawMessage(`{"message":"runId and id required"}`)})
				continue
			}
			ch := s.Broker.Subscribe(p.RunID)
			subs[msg.ID] = sub{runID: p.RunID, ch: ch}
			go func(id string, ch chan SSEEvent) {
				for evt := range ch {
					body := map[string]any{"type": evt.Type, "data": evt.Data}
					b, _ := json.Marshal(body)
					if err := writeMu.write(wsMessage{Type: "next", ID: id, Payload: b}); err != nil {
						return
					}
				}
				_ = writeMu.write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete", "unsubscribe":
			if sb, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(sb.runID, sb.ch)
				delete(subs, msg.ID)
			}
		case "ping":
			_ = writeMu.write(wsMessage{Type: "pong"})
		}
	}
}

// wsWriter serializes writes from the forwarding goroutines.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsWriter) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}
