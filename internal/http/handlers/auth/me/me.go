// Package me реализует HTTP-обработчик получения профиля текущего участника.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/http/response"
)

// Handler обрабатывает HTTP-запросы профиля.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Профиль текущего участника
// @Description Возвращает данные участника по токену из заголовка Authorization.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Профиль"
// @Failure 401 {object} response.ErrorResponse "Токен отсутствует или невалиден"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	member, ok := middlewarectx.MemberFromContext(r.Context())
	if !ok {
		log.Error("member missing in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("member identification missing"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"member_id":  member.ID,
		"username":   member.Username,
		"email":      member.Email,
		"first_name": member.FirstName,
		"last_name":  member.LastName,
		"role":       member.Role,
		"created_at": member.CreatedAt,
	}))
}
