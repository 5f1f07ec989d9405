package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

// ErrDetached is returned when no browser client is attached to the bridge.
var ErrDetached = errors.New("speech: no client attached")

// Outbound command types.
const (
	CmdSpeak         = "speak"
	CmdCancel        = "cancel"
	CmdListen        = "listen"
	CmdStopListening = "stop_listening"
	CmdNavigate      = "navigate"
	CmdEvent         = "event"
	CmdError         = "error"
)

// Inbound message types.
const (
	MsgVoices       = "voices"
	MsgSpeechStart  = "speech_start"
	MsgSpeechEnd    = "speech_end"
	MsgSpeechError  = "speech_error"
	MsgCapture      = "capture"
	MsgCaptureError = "capture_error"
	MsgCaptureEnd   = "capture_end"
)

// EventHandler consumes capability callbacks relayed by the bridge.
type EventHandler interface {
	HandleSpeechStart(id string)
	HandleSpeechEnd(id string)
	HandleSpeechError(id string, err error)
	HandleCaptureResult(res speech.CaptureResult)
	HandleCaptureError(err error)
	HandleCaptureEnd()
	HandleCapabilityLost()
}

// Command is the envelope written to the client.
type Command struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type utteranceEvent struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type captureEvent struct {
	Text       string  `json:"text"`
	Final      bool    `json:"final"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// BridgeOptions 连接配置选项
type BridgeOptions struct {
	ReadTimeout  time.Duration // 读取超时时间
	WriteTimeout time.Duration // 写入超时时间
	PingInterval time.Duration // Ping间隔
}

// DefaultBridgeOptions 默认连接选项
func DefaultBridgeOptions() *BridgeOptions {
	return &BridgeOptions{
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		PingInterval: 54 * time.Second,
	}
}

// Bridge exposes the browser's speech capture, speech synthesis and router as
// server-side ports over one websocket. At most one client is attached; a new
// connection replaces the old one.
type Bridge struct {
	opts *BridgeOptions

	mu      sync.Mutex
	conn    *websocket.Conn
	handler EventHandler
	voices  []speech.Voice

	writeMu sync.Mutex
}

// NewBridge creates a detached bridge.
func NewBridge(opts *BridgeOptions) *Bridge {
	if opts == nil {
		opts = DefaultBridgeOptions()
	}
	return &Bridge{opts: opts}
}

// SetHandler registers the receiver of capability callbacks.
func (b *Bridge) SetHandler(h EventHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Attached reports whether a client is connected.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Speak implements Synthesizer.
func (b *Bridge) Speak(_ context.Context, req speech.SpeakRequest) error {
	return b.Send(CmdSpeak, req)
}

// Cancel implements Synthesizer. Nothing to cancel when detached.
func (b *Bridge) Cancel() {
	if err := b.Send(CmdCancel, nil); err != nil && !errors.Is(err, ErrDetached) {
		logging.Named("bridge").Warnw("send cancel failed", "error", err)
	}
}

// Voices implements Synthesizer with the list last reported by the client.
func (b *Bridge) Voices() []speech.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]speech.Voice(nil), b.voices...)
}

// Start implements Recognizer.
func (b *Bridge) Start(_ context.Context, locale string) error {
	return b.Send(CmdListen, map[string]string{"locale": locale})
}

// Stop implements Recognizer.
func (b *Bridge) Stop() error {
	err := b.Send(CmdStopListening, nil)
	if errors.Is(err, ErrDetached) {
		return nil
	}
	return err
}

// Navigate asks the client router to change page.
func (b *Bridge) Navigate(path string) error {
	return b.Send(CmdNavigate, map[string]string{"path": path})
}

// Send writes one command to the attached client.
func (b *Bridge) Send(typ string, data any) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrDetached
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	if err := conn.WriteJSON(Command{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}); err != nil {
		return fmt.Errorf("write %s: %w", typ, err)
	}
	return nil
}

// Serve attaches conn and relays its messages until the client goes away or ctx
// is done. The previous client, if any, is disconnected.
func (b *Bridge) Serve(ctx context.Context, conn *websocket.Conn) error {
	log := logging.Named("bridge")

	b.mu.Lock()
	previous := b.conn
	b.conn = conn
	b.mu.Unlock()
	if previous != nil {
		log.Infow("replacing attached client")
		previous.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.detach(conn)

	conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))
		return nil
	})

	go b.pingLoop(ctx, conn)
	go func() {
		<-ctx.Done()
		// unblock ReadJSON
		conn.SetReadDeadline(time.Now())
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw("read failed", "error", err)
				return err
			}
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))
		b.dispatch(msg)
	}
}

func (b *Bridge) detach(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	b.conn = nil
	b.voices = nil
	h := b.handler
	b.mu.Unlock()

	conn.Close()
	if h != nil {
		h.HandleCapabilityLost()
	}
}

func (b *Bridge) dispatch(msg inboundMessage) {
	log := logging.Named("bridge")

	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()

	switch msg.Type {
	case MsgVoices:
		var voices []speech.Voice
		if err := json.Unmarshal(msg.Data, &voices); err != nil {
			b.reject("invalid voices payload")
			return
		}
		b.mu.Lock()
		b.voices = voices
		b.mu.Unlock()
		return
	}

	if h == nil {
		log.Debugw("no handler for message", "type", msg.Type)
		return
	}

	switch msg.Type {
	case MsgSpeechStart, MsgSpeechEnd, MsgSpeechError:
		var ev utteranceEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.reject("invalid speech payload")
			return
		}
		switch msg.Type {
		case MsgSpeechStart:
			h.HandleSpeechStart(ev.ID)
		case MsgSpeechEnd:
			h.HandleSpeechEnd(ev.ID)
		default:
			h.HandleSpeechError(ev.ID, errors.New(ev.Error))
		}
	case MsgCapture:
		var ev captureEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.reject("invalid capture payload")
			return
		}
		h.HandleCaptureResult(speech.CaptureResult{
			Text:       ev.Text,
			Final:      ev.Final,
			Confidence: ev.Confidence,
			ReceivedAt: time.Now(),
		})
	case MsgCaptureError:
		var ev captureEvent
		_ = json.Unmarshal(msg.Data, &ev)
		h.HandleCaptureError(errors.New(ev.Error))
	case MsgCaptureEnd:
		h.HandleCaptureEnd()
	default:
		b.reject("unsupported message type: " + msg.Type)
	}
}

func (b *Bridge) reject(message string) {
	if err := b.Send(CmdError, map[string]string{"message": message}); err != nil {
		logging.Named("bridge").Warnw("write error failed", "error", err)
	}
}

// pingLoop 定期发送ping消息
func (b *Bridge) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(b.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(b.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
