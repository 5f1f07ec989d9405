package interaction

import (
	"context"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
)

// LogSink writes entries to the structured log. Used when no database is configured.
type LogSink struct{}

// Write implements Sink.
func (LogSink) Write(_ context.Context, e assistant.InteractionLogEntry) error {
	logging.Named("interaction").Infow("interaction",
		"session", e.SessionID,
		"user", e.UserID,
		"type", e.InteractionType,
		"intent", e.IntentDetected,
		"confidence", e.ConfidenceScore,
		"query", e.UserQuery,
	)
	return nil
}
