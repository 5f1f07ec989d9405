package speech

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	assistantsvc "github.com/zhouzirui/concierge/backend/internal/service/assistant"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
	"github.com/zhouzirui/concierge/backend/pkg/utils"
)

// Handler 语音能力桥的HTTP处理器。浏览器通过 WebSocket 提供语音合成、
// 语音识别与页面跳转能力。
type Handler struct {
	sessions *assistantsvc.Manager
	upgrader websocket.Upgrader
}

// New 创建语音处理器。allowOrigin 为 nil 时接受任意来源。
func New(sessions *assistantsvc.Manager, allowOrigin func(*http.Request) bool) *Handler {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin:     allowOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistant/sessions/{sessionID}/ws", h.handleWebSocket)
	r.Get("/assistant/sessions/{sessionID}/speech", h.handleStatus)
}

type statusResponse struct {
	Attached bool            `json:"attached"`
	State    speechsvc.State `json:"state"`
	Voices   []speech.Voice  `json:"voices"`
}

// handleStatus 报告客户端是否已连接以及其上报的可用声音
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	bridge, err := h.sessions.Bridge(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	a, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	snap := a.Snapshot()
	voices := bridge.Voices()
	if voices == nil {
		voices = []speech.Voice{}
	}
	utils.RespondJSON(w, http.StatusOK, statusResponse{
		Attached: bridge.Attached(),
		State:    speechsvc.State{Listening: snap.Listening, Speaking: snap.Speaking, Muted: snap.Muted},
		Voices:   voices,
	})
}
