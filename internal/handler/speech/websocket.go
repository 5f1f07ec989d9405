package speech

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	assistantsvc "github.com/zhouzirui/concierge/backend/internal/service/assistant"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
)

// handleWebSocket 把浏览器连接挂到会话的能力桥上，并把助手事件转发给它
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	a, err := h.sessions.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	bridge, err := h.sessions.Bridge(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	log := logging.Named("ws").With("session", sessionID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	events, unsubscribe := a.Subscribe(0)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go forwardEvents(ctx, bridge, events)

	log.Infow("client attached")
	if err := bridge.Serve(ctx, conn); err != nil {
		log.Warnw("client connection ended with error", "error", err)
		return
	}
	log.Infow("client detached")
}

func forwardEvents(ctx context.Context, bridge *speechsvc.Bridge, events <-chan assistantsvc.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := bridge.Send(speechsvc.CmdEvent, ev); err != nil && !errors.Is(err, speechsvc.ErrDetached) {
				logging.Named("ws").Debugw("forward event failed", "session", ev.SessionID, "type", ev.Type, "error", err)
			}
		}
	}
}
