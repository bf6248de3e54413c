package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Update is a push notification from the service. It only signals that the
// authoritative state changed; the receiver reconciles by pulling a snapshot.
type Update struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Events that should trigger a reconciliation.
var refreshEvents = map[string]bool{
	"game-update":          true,
	"position-changed":     true,
	"player-joined":        true,
	"player-left":          true,
	"vote-cast":            true,
	"end-by-networth-vote": true,
	"game-started":         true,
	"game-ended":           true,
}

const pushRetryDelay = 5 * time.Second

// Subscribe joins the game room on the push endpoint and forwards refresh
// events until ctx is cancelled. Dropped connections are retried; updates are
// coalesced when the receiver is slow.
func Subscribe(ctx context.Context, wsURL, code string, log *logrus.Entry) <-chan Update {
	out := make(chan Update, 1)
	go func() {
		defer close(out)
		for {
			err := listen(ctx, wsURL, code, out)
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("push channel dropped, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(pushRetryDelay):
			}
		}
	}()
	return out
}

func listen(ctx context.Context, wsURL, code string, out chan<- Update) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.CloseNow()

	join, _ := json.Marshal(Update{Event: "join-game-room", Data: json.RawMessage(fmt.Sprintf("%q", code))})
	if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
		return fmt.Errorf("join room %s: %w", code, err)
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var u Update
		if err := json.Unmarshal(msg, &u); err != nil || !refreshEvents[u.Event] {
			continue
		}
		select {
		case out <- u:
		default:
		}
	}
}
