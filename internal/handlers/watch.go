// internal/handlers/watch.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tycoon/internal/game"
	"github.com/jason-s-yu/tycoon/internal/middleware"
	"github.com/sirupsen/logrus"
)

// handleWatch upgrades to a websocket that first sends the turn view, then
// every event the session emits. The stream is read-only.
func (s *StatusServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	log := s.Logger.WithFields(logrus.Fields{"game_code": o.Code(), "remote": r.RemoteAddr})

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"tycoon"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warnf("websocket accept: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "watch handler exited")

	if c.Subprotocol() != "tycoon" {
		c.Close(BadSubprotocolError, "client must use the 'tycoon' subprotocol")
		return
	}
	if s.Auth != nil {
		if _, err := s.Auth.Authenticate(requestToken(r)); err != nil {
			c.Close(InvalidAuthTokenError, "invalid auth token")
			return
		}
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	events, stop := s.Hub.Watch(o.Code())
	defer stop()
	ctx := c.CloseRead(r.Context())

	view, _ := json.Marshal(map[string]interface{}{"type": "view", "view": o.View()})
	if err := c.Write(ctx, websocket.MessageText, view); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, nil)
			return
		case ev := <-events:
			if err := c.Write(ctx, websocket.MessageText, game.EncodeEvent(ev)); err != nil {
				middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
				return
			}
			if ev.Type == game.EventGameFinished || ev.Type == game.EventVotedOut {
				c.Close(SessionEndedError, string(ev.Type))
				return
			}
		}
	}
}
