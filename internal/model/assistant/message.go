package assistant

import "time"

// Source tells how an utterance was produced.
type Source string

const (
	SourceSpeech Source = "speech"
	SourceTyped  Source = "typed"
)

// ParseSource defaults anything unknown to typed input.
func ParseSource(raw string) Source {
	if Source(raw) == SourceSpeech {
		return SourceSpeech
	}
	return SourceTyped
}

// Utterance is one unit of user input for a single turn.
type Utterance struct {
	Text       string    `json:"text"`
	Source     Source    `json:"source"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Turns are append-only.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Source    Source    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InteractionLogEntry is the per-turn analytics record.
type InteractionLogEntry struct {
	SessionID         string         `json:"sessionId"`
	UserID            string         `json:"userId,omitempty"`
	InteractionType   string         `json:"interactionType"`
	UserQuery         string         `json:"userQuery"`
	AssistantResponse string         `json:"assistantResponse"`
	IntentDetected    string         `json:"intentDetected"`
	ConfidenceScore   float64        `json:"confidenceScore"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}
