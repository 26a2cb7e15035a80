// Package dashboard реализует HTTP-обработчик сводной статистики
// для административной панели.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// StatsProvider описывает интерфейс источника сводной статистики.
type StatsProvider interface {
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
}

// Handler обрабатывает HTTP-запросы сводной статистики.
type Handler struct {
	log   *slog.Logger
	stats StatsProvider
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, stats StatsProvider) *Handler {
	return &Handler{log: log, stats: stats}
}

// ServeHTTP godoc
// @Summary Сводная статистика
// @Description Возвращает количество участников, действующих абонементов и посещений.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Статистика"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	stats, err := h.stats.GetDashboardStats(r.Context())
	if err != nil {
		log.Error("failed to get dashboard stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"total_members":            stats.TotalMembers,
		"total_active_memberships": stats.TotalActiveMemberships,
		"total_check_ins":          stats.TotalCheckIns,
	}))
}
