package assistant

import (
	"time"

	model "github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

// EventType names what changed.
type EventType string

const (
	EventOpened   EventType = "opened"
	EventClosed   EventType = "closed"
	EventTurn     EventType = "turn"
	EventView     EventType = "view"
	EventNavigate EventType = "navigate"
	EventSpeech   EventType = "speech"
	EventCaption  EventType = "caption"
	EventChime    EventType = "chime"
	EventSettings EventType = "settings"
)

// Event is pushed to subscribers (SSE, websocket, CLI).
type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"sessionId"`
	Turn      *model.Turn           `json:"turn,omitempty"`
	View      model.View            `json:"view,omitempty"`
	Path      string                `json:"path,omitempty"`
	Listening bool                  `json:"listening,omitempty"`
	Speaking  bool                  `json:"speaking,omitempty"`
	Caption   string                `json:"caption,omitempty"`
	Settings  *speech.VoiceSettings `json:"settings,omitempty"`
	At        time.Time             `json:"at"`
}

const defaultSubscriberBuffer = 32

type subscriber struct {
	ch chan Event
}

// Subscribe registers a listener. Slow listeners miss events instead of
// stalling the assistant. The returned func unsubscribes and closes the channel.
func (a *Assistant) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &subscriber{ch: make(chan Event, buffer)}

	a.subsMu.Lock()
	if a.disposed {
		a.subsMu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	a.subs[sub] = struct{}{}
	a.subsMu.Unlock()

	return sub.ch, func() {
		a.subsMu.Lock()
		defer a.subsMu.Unlock()
		if _, ok := a.subs[sub]; ok {
			delete(a.subs, sub)
			close(sub.ch)
		}
	}
}

func (a *Assistant) publish(ev Event) {
	ev.SessionID = a.id
	if ev.At.IsZero() {
		ev.At = a.now()
	}

	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for sub := range a.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (a *Assistant) closeSubscribers() {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	a.disposed = true
	for sub := range a.subs {
		close(sub.ch)
		delete(a.subs, sub)
	}
}
