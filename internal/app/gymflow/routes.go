// Package gymflow предоставляет маршруты для основного приложения.
package gymflow

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/kenshar/gymflow/internal/config"
	admincreateplan "github.com/kenshar/gymflow/internal/http/handlers/admin/createplan"
	admindashboard "github.com/kenshar/gymflow/internal/http/handlers/admin/dashboard"
	adminrevenue "github.com/kenshar/gymflow/internal/http/handlers/admin/revenue"
	adminunlock "github.com/kenshar/gymflow/internal/http/handlers/admin/unlock"
	adminupdaterole "github.com/kenshar/gymflow/internal/http/handlers/admin/updaterole"
	attendancecheckin "github.com/kenshar/gymflow/internal/http/handlers/attendance/checkin"
	attendancecheckout "github.com/kenshar/gymflow/internal/http/handlers/attendance/checkout"
	attendancelist "github.com/kenshar/gymflow/internal/http/handlers/attendance/list"
	authlogin "github.com/kenshar/gymflow/internal/http/handlers/auth/login"
	authlogout "github.com/kenshar/gymflow/internal/http/handlers/auth/logout"
	authme "github.com/kenshar/gymflow/internal/http/handlers/auth/me"
	authrefresh "github.com/kenshar/gymflow/internal/http/handlers/auth/refresh"
	authregister "github.com/kenshar/gymflow/internal/http/handlers/auth/register"
	membershipcreate "github.com/kenshar/gymflow/internal/http/handlers/membership/create"
	membershiplist "github.com/kenshar/gymflow/internal/http/handlers/membership/list"
	membershipread "github.com/kenshar/gymflow/internal/http/handlers/membership/read"
	membershiprenew "github.com/kenshar/gymflow/internal/http/handlers/membership/renew"
	paymentcash "github.com/kenshar/gymflow/internal/http/handlers/payment/cash"
	paymentcheckout "github.com/kenshar/gymflow/internal/http/handlers/payment/checkout"
	paymentlist "github.com/kenshar/gymflow/internal/http/handlers/payment/list"
	paymentread "github.com/kenshar/gymflow/internal/http/handlers/payment/read"
	paymentwebhook "github.com/kenshar/gymflow/internal/http/handlers/payment/webhook"
	workoutaddexercise "github.com/kenshar/gymflow/internal/http/handlers/workout/addexercise"
	workoutcreate "github.com/kenshar/gymflow/internal/http/handlers/workout/create"
	workoutlist "github.com/kenshar/gymflow/internal/http/handlers/workout/list"
	workoutread "github.com/kenshar/gymflow/internal/http/handlers/workout/read"
	workoutremove "github.com/kenshar/gymflow/internal/http/handlers/workout/remove"
	workoutupdate "github.com/kenshar/gymflow/internal/http/handlers/workout/update"
	"github.com/kenshar/gymflow/internal/http/middlewarectx"
	"github.com/kenshar/gymflow/internal/models"
	attendanceservice "github.com/kenshar/gymflow/internal/services/attendance"
	authservice "github.com/kenshar/gymflow/internal/services/auth"
	membershipservice "github.com/kenshar/gymflow/internal/services/membership"
	paymentservice "github.com/kenshar/gymflow/internal/services/payment"
	workoutservice "github.com/kenshar/gymflow/internal/services/workout"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService,
	membershipService *membershipservice.Service,
	paymentService *paymentservice.Service,
	attendanceService *attendanceservice.Service,
	workoutService *workoutservice.Service,
	db *repository.Storage,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	loginLimiter := rate.NewLimiter(1, 5)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.LoginRateLimitMiddleware(logger, loginLimiter))
			r.Post("/auth/register", authregister.New(logger, authService).ServeHTTP)
			r.Post("/auth/login", authlogin.New(logger, authService).ServeHTTP)
		})

		// Вебхук шлюза: открыт, но защищен HMAC-подписью
		r.Post("/payments/webhook",
			paymentwebhook.New(logger, paymentService, cfg.PaymentGateway.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))

			r.Post("/auth/logout", authlogout.New(logger, authService).ServeHTTP)
			r.Post("/auth/refresh", authrefresh.New(logger, authService).ServeHTTP)
			r.Get("/auth/me", authme.New(logger).ServeHTTP)

			r.Post("/memberships", membershipcreate.New(logger, membershipService).ServeHTTP)
			r.Get("/memberships", membershiplist.New(logger, membershipService).ServeHTTP)
			r.Get("/memberships/{id}", membershipread.New(logger, membershipService).ServeHTTP)
			r.Put("/memberships/{id}/renew", membershiprenew.New(logger, membershipService).ServeHTTP)

			r.Post("/payments/checkout", paymentcheckout.New(logger, paymentService).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/{id}", paymentread.New(logger, paymentService, db).ServeHTTP)

			r.Post("/attendance/check-in", attendancecheckin.New(logger, attendanceService).ServeHTTP)
			r.Post("/attendance/check-out", attendancecheckout.New(logger, attendanceService).ServeHTTP)
			r.Get("/attendance", attendancelist.New(logger, attendanceService).ServeHTTP)

			r.Post("/workouts", workoutcreate.New(logger, workoutService).ServeHTTP)
			r.Get("/workouts", workoutlist.New(logger, workoutService).ServeHTTP)
			r.Get("/workouts/{id}", workoutread.New(logger, workoutService).ServeHTTP)
			r.Put("/workouts/{id}", workoutupdate.New(logger, workoutService).ServeHTTP)
			r.Delete("/workouts/{id}", workoutremove.New(logger, workoutService).ServeHTTP)
			r.Post("/workouts/{id}/exercises", workoutaddexercise.New(logger, workoutService).ServeHTTP)

			// Административные операции
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRoleMiddleware(logger, models.RoleAdmin))
				r.Post("/payments/cash", paymentcash.New(logger, paymentService).ServeHTTP)
				r.Post("/admin/plans", admincreateplan.New(logger, db).ServeHTTP)
				r.Post("/admin/members/{id}/unlock", adminunlock.New(logger, authService).ServeHTTP)
				r.Put("/admin/members/{id}/role", adminupdaterole.New(logger, authService).ServeHTTP)
				r.Get("/admin/dashboard", admindashboard.New(logger, db).ServeHTTP)
				r.Get("/admin/revenue", adminrevenue.New(logger, paymentService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
