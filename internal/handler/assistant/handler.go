package assistant

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	model "github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	assistantsvc "github.com/zhouzirui/concierge/backend/internal/service/assistant"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
	"github.com/zhouzirui/concierge/backend/pkg/utils"
)

// History 按会话读取已持久化的交互日志
type History interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]model.InteractionLogEntry, error)
}

// Handler 助手会话的HTTP处理器
type Handler struct {
	sessions *assistantsvc.Manager
	resolver assistantsvc.Resolver
	history  History
}

// New 创建助手处理器。history 可以为 nil。
func New(sessions *assistantsvc.Manager, resolver assistantsvc.Resolver, history History) *Handler {
	return &Handler{
		sessions: sessions,
		resolver: resolver,
		history:  history,
	}
}

// RegisterRoutes 注册助手相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/resolve", h.handleResolve)

	r.Post("/assistant/sessions", h.handleCreateSession)
	r.Get("/assistant/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/assistant/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/assistant/sessions/{sessionID}/open", h.handleOpen)
	r.Post("/assistant/sessions/{sessionID}/close", h.handleClose)
	r.Post("/assistant/sessions/{sessionID}/utterances", h.handleUtterance)
	r.Put("/assistant/sessions/{sessionID}/settings", h.handleSettings)
	r.Put("/assistant/sessions/{sessionID}/view", h.handleView)
	r.Put("/assistant/sessions/{sessionID}/mute", h.handleMute)
	r.Post("/assistant/sessions/{sessionID}/listen", h.handleListen)
	r.Get("/assistant/sessions/{sessionID}/interactions", h.handleInteractions)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*assistantsvc.Assistant, bool) {
	a, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return a, true
}

// handleResolve 无状态地解析一句话，用于调试关键字表
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}
	res := h.resolver.Resolve(r.Context(), text, language.Parse(r.URL.Query().Get("lang")))
	utils.RespondJSON(w, http.StatusOK, res)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"userId"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	a, err := h.sessions.Create(r.Context(), strings.TrimSpace(payload.UserID))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, a.Snapshot())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(chi.URLParam(r, "sessionID")) {
		respondServiceError(w, assistantsvc.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := a.Open(context.WithoutCancel(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := a.Close(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

// handleUtterance 处理一轮用户输入
func (h *Handler) handleUtterance(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload model.Utterance
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := a.OnUtterance(r.Context(), payload.Text, model.ParseSource(string(payload.Source)))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload speech.VoiceSettings
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	utils.RespondJSON(w, http.StatusOK, a.SetVoiceSettings(payload))
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		View model.View `json:"view"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.SwitchView(payload.View); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

func (h *Handler) handleMute(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Muted bool `json:"muted"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a.SetMuted(payload.Muted)
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

// handleListen 开关语音输入。listening 为 true 且已在收音时保持不变。
func (h *Handler) handleListen(w http.ResponseWriter, r *http.Request) {
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Listening bool `json:"listening"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !payload.Listening {
		a.StopListening()
	} else if !a.Snapshot().Listening {
		if _, err := a.StartListening(context.WithoutCancel(r.Context())); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, a.Snapshot())
}

func (h *Handler) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "interaction history unavailable")
		return
	}
	a, ok := h.session(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), a.ID(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.InteractionLogEntry{}
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistantsvc.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assistantsvc.ErrEmptyUtterance), errors.Is(err, assistantsvc.ErrUnknownView):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistantsvc.ErrClosed):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, speechsvc.ErrDetached), errors.Is(err, speechsvc.ErrNoRecognizer):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
