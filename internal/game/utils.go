// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EncodeEvent marshals an Event into JSON bytes, "{}" if it cannot be encoded.
func EncodeEvent(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Warnf("encode event %s", ev.Type)
		return []byte("{}")
	}
	return data
}

// LogSink returns a notification sink that writes each event to log.
func LogSink(log *logrus.Entry) func(Event) {
	return func(ev Event) {
		entry := log.WithField("event", string(ev.Type))
		if ev.PlayerID != 0 {
			entry = entry.WithField("player_id", ev.PlayerID)
		}
		if ev.Type == EventError {
			entry.Warn(ev.Message)
			return
		}
		entry.WithField("payload", string(EncodeEvent(Event{Payload: ev.Payload}))).Info(ev.Message)
	}
}
