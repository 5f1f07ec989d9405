package interaction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
)

func TestSQLiteSinkRoundTrip(t *testing.T) {
	sink, err := OpenSQLite(filepath.Join(t.TempDir(), "interactions.db"))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := assistant.InteractionLogEntry{
		SessionID:         "s1",
		UserID:            "u42",
		InteractionType:   "support",
		UserQuery:         "open support ticket",
		AssistantResponse: "I've opened the support form.",
		IntentDetected:    "support",
		ConfidenceScore:   0.9,
		Metadata:          map[string]any{"language": "en", "view": "support"},
		CreatedAt:         created,
	}
	require.NoError(t, sink.Write(ctx, first))
	require.NoError(t, sink.Write(ctx, assistant.InteractionLogEntry{
		SessionID: "s2", InteractionType: "default", UserQuery: "x", AssistantResponse: "y", CreatedAt: created,
	}))
	second := first
	second.UserQuery = "thanks"
	second.InteractionType = "thanks"
	second.Metadata = nil
	require.NoError(t, sink.Write(ctx, second))

	got, err := sink.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, "thanks", got[1].InteractionType)
	assert.Nil(t, got[1].Metadata)

	latest, err := sink.Recent(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "thanks", latest[0].UserQuery)
}

func TestSQLiteSinkThroughLogger(t *testing.T) {
	sink, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	l := New(sink, Options{QueueSize: 8})
	for _, q := range []string{"book", "price", "help"} {
		require.True(t, l.Log(entry(q)))
	}
	require.NoError(t, l.Close(context.Background()))

	got, err := sink.Recent(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "help", got[2].UserQuery)
}

func TestSQLiteWriteFailureIsSinkError(t *testing.T) {
	sink, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Write(context.Background(), entry("x"))
	var sinkErr *SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "insert", sinkErr.Op)
}
