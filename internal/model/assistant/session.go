package assistant

import (
	"time"

	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

// View is the panel currently shown inside the assistant.
type View string

const (
	ViewChat     View = "chat"
	ViewFeedback View = "feedback"
	ViewSupport  View = "support"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewChat, ViewFeedback, ViewSupport:
		return true
	default:
		return false
	}
}

// Phase is the lifecycle state of an assistant instance.
type Phase string

const (
	PhaseClosed    Phase = "closed"
	PhaseIdle      Phase = "idle"
	PhaseListening Phase = "listening"
	PhaseSpeaking  Phase = "speaking"
)

// Session is a point-in-time snapshot of one assistant instance.
type Session struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId,omitempty"`
	Turns     []Turn               `json:"turns"`
	View      View                 `json:"view"`
	Phase     Phase                `json:"phase"`
	Open      bool                 `json:"open"`
	Listening bool                 `json:"listening"`
	Speaking  bool                 `json:"speaking"`
	Muted     bool                 `json:"muted"`
	Settings  speech.VoiceSettings `json:"settings"`
	CreatedAt time.Time            `json:"createdAt"`
	LastSeen  time.Time            `json:"lastSeen"`
}
