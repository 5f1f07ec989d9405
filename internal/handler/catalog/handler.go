package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
	"github.com/zhouzirui/concierge/backend/pkg/utils"
)

// Handler 服务目录的HTTP处理器
type Handler struct {
	services catalog.Store
}

// New 创建目录处理器
func New(services catalog.Store) *Handler {
	return &Handler{services: services}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog/services", h.handleListServices)
	r.Get("/catalog/services/{serviceID}", h.handleGetService)
}

type serviceView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Summary         string  `json:"summary"`
	Path            string  `json:"path"`
	DurationMinutes int     `json:"durationMinutes"`
	PriceFrom       float64 `json:"priceFrom"`
}

func localize(s catalog.Service, tag language.Tag) serviceView {
	return serviceView{
		ID:              s.ID,
		Name:            s.Name(tag),
		Summary:         s.Summary(tag),
		Path:            s.Path,
		DurationMinutes: s.DurationMinutes,
		PriceFrom:       s.PriceFrom,
	}
}

// handleListServices 列出所有服务，按 lang 参数本地化名称
func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	tag := language.Parse(r.URL.Query().Get("lang"))
	services := h.services.Services()

	out := make([]serviceView, 0, len(services))
	for _, s := range services {
		out = append(out, localize(s, tag))
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	s, ok := h.services.FindService(chi.URLParam(r, "serviceID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "service not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, localize(s, language.Parse(r.URL.Query().Get("lang"))))
}
