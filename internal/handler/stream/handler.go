package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	assistantsvc "github.com/zhouzirui/concierge/backend/internal/service/assistant"
	"github.com/zhouzirui/concierge/backend/pkg/utils"
)

// DefaultHeartbeat keeps idle proxies from closing the stream.
const DefaultHeartbeat = 15 * time.Second

// Handler pushes assistant events to the browser via Server-Sent Events.
type Handler struct {
	sessions  *assistantsvc.Manager
	heartbeat time.Duration
}

// New creates a new stream handler. A non-positive heartbeat uses DefaultHeartbeat.
func New(sessions *assistantsvc.Manager, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handler{sessions: sessions, heartbeat: heartbeat}
}

// RegisterRoutes 注册事件流路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistant/sessions/{sessionID}/events", h.handleEvents)
}

// handleEvents starts with a snapshot, then relays every event until the client
// leaves or the session is disposed.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	a, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := a.Subscribe(0)
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	utils.SendSSEEvent(w, flusher, "snapshot", a.Snapshot())

	log := logging.Named("sse")
	log.Debugw("event stream opened", "session", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debugw("event stream closed by client", "session", sessionID)
			return
		case ev, ok := <-events:
			if !ok {
				utils.SendSSEEvent(w, flusher, "end", map[string]string{"sessionId": sessionID})
				return
			}
			utils.SendSSEEvent(w, flusher, string(ev.Type), ev)
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			})
		}
	}
}
