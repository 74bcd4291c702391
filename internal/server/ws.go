package server

import (
	"net/http"
	"time"

	"minearena/internal/battle"
)

const (
	streamBuffer = 64
	writeTimeout = 10 * time.Second
)

// wsMessage is the envelope pushed to stream clients.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleStream upgrades the connection and bridges the battle's event stream
// onto it. The subscription replays the battle so far, so a client joining
// mid-battle starts from a complete picture instead of a gap.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	if _, err := s.store.Get(battleID); err != nil {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("battle_id", battleID).
			Msg("WebSocket upgrade failed")
		return
	}

	send := make(chan wsMessage, streamBuffer)
	unsub, err := s.store.SubscribeWithReplay(battleID, func(ev battle.Event) {
		// Non-blocking send so a slow client cannot stall the battle.
		select {
		case send <- wsMessage{Event: ev.Type(), Data: ev}:
		default:
			s.logger.Warn().
				Str("battle_id", battleID).
				Str("event_type", ev.Type()).
				Msg("Stream channel full, dropping event")
		}
	})
	if err != nil {
		// The battle was evicted between the lookup and the subscription.
		conn.Close()
		return
	}

	s.logger.Debug().Str("battle_id", battleID).Msg("Stream client connected")

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case msg := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	// Clients never send anything meaningful; this loop just notices when
	// they hang up.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	unsub()
	close(stop)
	conn.Close()
	s.logger.Debug().Str("battle_id", battleID).Msg("Stream client disconnected")
}
