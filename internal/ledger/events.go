package ledger

import (
	"TG_rewards_bot/internal/model"
)

// Events exposes the feed consumed by the admin websocket.
func (l *Ledger) Events() <-chan model.LedgerEvent {
	return l.events
}

// publish pushes an event without ever blocking the mutation path; if no one
// is draining the feed, the event is dropped.
func (l *Ledger) publish(eventType string, payload map[string]any) {
	ev := model.LedgerEvent{
		Type:    eventType,
		Payload: payload,
		At:      l.now(),
	}
	select {
	case l.events <- ev:
	default:
	}
}
