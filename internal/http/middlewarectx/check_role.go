package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/kenshar/gymflow/internal/http/response"
)

// RequireRoleMiddleware создает middleware, пропускающий только участников
// с указанной ролью. Администратор проходит любую проверку роли.
func RequireRoleMiddleware(log *slog.Logger, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, ok := MemberFromContext(r.Context())
			if !ok {
				log.Error("member identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("member identification missing"))
				return
			}

			if !member.HasRole(role) {
				log.Warn("access denied",
					slog.Int64("member_id", member.ID),
					slog.String("required_role", role),
					slog.String("actual_role", member.Role))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
