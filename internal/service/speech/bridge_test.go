package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

type handlerLog struct {
	mu     sync.Mutex
	events []string
}

func (h *handlerLog) add(ev string) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *handlerLog) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *handlerLog) HandleSpeechStart(id string)          { h.add("start:" + id) }
func (h *handlerLog) HandleSpeechEnd(id string)            { h.add("end:" + id) }
func (h *handlerLog) HandleSpeechError(id string, _ error) { h.add("error:" + id) }
func (h *handlerLog) HandleCaptureResult(res speech.CaptureResult) {
	h.add("capture:" + res.Text)
}
func (h *handlerLog) HandleCaptureError(_ error) { h.add("capture_error") }
func (h *handlerLog) HandleCaptureEnd()          { h.add("capture_end") }
func (h *handlerLog) HandleCapabilityLost()      { h.add("lost") }

func serveBridge(t *testing.T, b *Bridge) (*websocket.Conn, <-chan struct{}) {
	t.Helper()
	done := make(chan struct{})
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer close(done)
		_ = b.Serve(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, b.Attached, time.Second, 5*time.Millisecond)
	return client, done
}

func TestBridgeDetached(t *testing.T) {
	b := NewBridge(nil)
	assert.False(t, b.Attached())
	assert.ErrorIs(t, b.Speak(context.Background(), speech.SpeakRequest{Text: "x"}), ErrDetached)
	assert.ErrorIs(t, b.Start(context.Background(), "en-US"), ErrDetached)
	assert.NoError(t, b.Stop())
	assert.ErrorIs(t, b.Navigate("/booking"), ErrDetached)
	b.Cancel()
	assert.Empty(t, b.Voices())
}

func TestBridgeRelaysCommandsAndEvents(t *testing.T) {
	b := NewBridge(nil)
	events := &handlerLog{}
	b.SetHandler(events)

	client, done := serveBridge(t, b)

	require.NoError(t, b.Speak(context.Background(), speech.SpeakRequest{ID: "u1", Text: "hello", Language: "en-US"}))
	var cmd struct {
		Type string              `json:"type"`
		Data speech.SpeakRequest `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&cmd))
	assert.Equal(t, CmdSpeak, cmd.Type)
	assert.Equal(t, "hello", cmd.Data.Text)

	require.NoError(t, b.Navigate("/booking"))
	var nav struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&nav))
	assert.Equal(t, CmdNavigate, nav.Type)
	assert.Equal(t, "/booking", nav.Data["path"])

	send := func(typ string, data any) {
		require.NoError(t, client.WriteJSON(map[string]any{"type": typ, "data": data}))
	}
	send(MsgVoices, []speech.Voice{{ID: "v1", Lang: "en-US"}})
	send(MsgSpeechStart, map[string]string{"id": "u1"})
	send(MsgSpeechEnd, map[string]string{"id": "u1"})
	send(MsgCapture, map[string]any{"text": "book", "final": true})
	send(MsgCaptureEnd, nil)

	require.Eventually(t, func() bool { return len(events.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"start:u1", "end:u1", "capture:book", "capture_end"}, events.snapshot())
	assert.Len(t, b.Voices(), 1)

	send("bogus", nil)
	var rejected struct {
		Type string `json:"type"`
	}
	require.NoError(t, client.ReadJSON(&rejected))
	assert.Equal(t, CmdError, rejected.Type)

	require.NoError(t, client.Close())
	<-done

	assert.False(t, b.Attached())
	assert.Equal(t, "lost", events.snapshot()[len(events.snapshot())-1])
	assert.Empty(t, b.Voices())
}

func TestBridgeDrivesCoordinator(t *testing.T) {
	b := NewBridge(nil)
	c := NewCoordinator(b, b, speech.DefaultVoiceSettings())
	b.SetHandler(c)

	client, done := serveBridge(t, b)

	id, err := c.Speak(context.Background(), "hi", "en-US")
	require.NoError(t, err)

	var cmd struct {
		Type string `json:"type"`
	}
	require.NoError(t, client.ReadJSON(&cmd))
	require.Equal(t, CmdSpeak, cmd.Type)

	require.NoError(t, client.WriteJSON(map[string]any{"type": MsgSpeechStart, "data": map[string]string{"id": id}}))
	require.Eventually(t, func() bool { return c.State().Speaking }, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())
	<-done
	assert.Equal(t, State{}, c.State())

	_, err = c.Speak(context.Background(), "nobody listening", "en-US")
	assert.True(t, errors.Is(err, ErrDetached))
}
