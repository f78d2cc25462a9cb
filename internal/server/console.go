package server

import (
	"context"
	log "log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"voxnav/pkg/platform"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ConsoleMessage is one console exchange: the client sends an utterance,
// the server answers with the spoken reply.
type ConsoleMessage struct {
	Utterance string `json:"utterance,omitempty"`
	Spoken    string `json:"spoken,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleConsole runs turns interactively over a websocket. The user id
// comes from the ?user= query so one console speaks as one platform user.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user query parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("console upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log.Info("console attached", "user", userID)

	for {
		var msg ConsoleMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Info("console detached", "user", userID)
				return
			}
			log.Warn("console read failed", "err", err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), TurnTimeout)
		resp, err := s.engine.Handle(ctx, platform.TurnRequest{
			UserID:    userID,
			Utterance: msg.Utterance,
		})
		cancel()

		out := ConsoleMessage{Spoken: resp.SpokenText}
		if err != nil {
			out = ConsoleMessage{Error: err.Error()}
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Warn("console write failed", "err", err)
			return
		}
	}
}
