// Package updaterole реализует HTTP-обработчик смены роли участника
// администратором. Администратор не может сменить собственную роль.
package updaterole

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
	"github.com/kenshar/gymflow/internal/lib/sl"
	"github.com/kenshar/gymflow/internal/services/auth"
)

// Request — структура входных данных для смены роли.
type Request struct {
	Role string `json:"role" validate:"required,oneof=admin trainer member"`
}

// Service описывает интерфейс бизнес-логики смены роли.
type Service interface {
	UpdateRole(ctx context.Context, adminID, memberID int64, role string) error
}

// Handler обрабатывает HTTP-запросы смены роли.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена роли участника
// @Description Устанавливает участнику роль admin, trainer или member.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID участника"
// @Param request body Request true "Новая роль"
// @Success 200 {object} response.Response "Роль обновлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID, JSON или попытка сменить свою роль"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/members/{id}/role [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.updaterole"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	admin, ok := middlewarectx.MemberFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("member identification missing"))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid member id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.authService.UpdateRole(r.Context(), admin.ID, id, req.Role); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("member not found"))
			return
		}
		log.Error("failed to update role", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("member role updated",
		slog.Int64("member_id", id),
		slog.String("role", req.Role))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"member_id": id,
		"role":      req.Role,
	}))
}
