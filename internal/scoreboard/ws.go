package scoreboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// displays live on TVs, hotel wifi, whatever; origin checks add nothing here
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS is the display entry point: GET /ws/{address}. The connection
// subscribes to the address and then passively receives broadcasts until
// it closes. A bound address gets the current state immediately so a
// late-joining TV never starts blank.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	if !s.engine.AddressExists(address) {
		http.Error(w, "unknown or expired address", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := NewSubscriber(ws)
	if err := s.engine.Subscribe(address, sub); err != nil {
		// retired between the check and the upgrade
		_ = ws.WriteJSON(Envelope{
			Type:    "error",
			Payload: mustJSON(map[string]string{"code": "invalid_address", "message": "unknown or expired address"}),
		})
		sub.Close()
		return
	}

	// writer loop
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-sub.done:
				return
			case msg := <-sub.send:
				_ = ws.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	// catch-up: current state if a match is linked, otherwise tell the
	// display it is still waiting for a link
	if payload, err := s.engine.Snapshot(address); err == nil {
		sub.enqueue(mustEnvelope("match_update", payload))
	} else {
		sub.enqueue(mustEnvelope("waiting_link", map[string]string{
			"tv_id":  address,
			"tv_url": s.displayURL(address),
		}))
	}

	// reader loop: displays mostly just hold the socket open
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case "join":
			// legacy clients re-announce themselves; subscribe is idempotent
			_ = s.engine.Subscribe(address, sub)
		default:
			sub.enqueue(mustEnvelope("error", map[string]string{
				"code": "unknown_type", "message": "unknown message type",
			}))
		}
	}

	// disconnect
	s.engine.Unsubscribe(sub)
	sub.Close()
}

// enqueue drops the message if the buffer is full, same policy as the hub.
func (c *Subscriber) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func mustEnvelope(typ string, payload any) []byte {
	b, _ := json.Marshal(Envelope{Type: typ, Payload: mustJSON(payload)})
	return b
}
