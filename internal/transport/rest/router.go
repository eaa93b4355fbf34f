package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/accessly/lock-management/internal/access"
	"github.com/accessly/lock-management/internal/accesslog"
	"github.com/accessly/lock-management/internal/auth"
	"github.com/accessly/lock-management/internal/lock"
	"github.com/accessly/lock-management/internal/permission"
	"github.com/accessly/lock-management/internal/reservation"
	"github.com/accessly/lock-management/internal/transport/middleware"
	"github.com/accessly/lock-management/internal/transport/swagger"
	"github.com/accessly/lock-management/internal/user"
)

type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Lock        *lock.Handler
	Permission  *permission.Handler
	Reservation *reservation.Handler
	Access      *access.Handler
	AccessLog   *accesslog.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Physical access decision endpoint: called by lock hardware
		// gateways, authenticated by the credential in the payload.
		r.Post("/access/attempt", h.Access.AttemptAccess)

		// Connectivity reports from the device gateway.
		r.Post("/locks/{id}/status", h.Lock.ReportStatus)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Routes that require a logged-in console user.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)

			pr.Route("/reservations", func(rr chi.Router) {
				rr.Post("/", h.Reservation.CreateReservation)
				rr.Get("/mine", h.Reservation.MyReservations)
				rr.Get("/available-locks", h.Reservation.AvailableLocks)

				rr.Group(func(ar chi.Router) {
					ar.Use(h.Auth.AdminOnly)
					ar.Get("/", h.Reservation.ListReservations)
					ar.Patch("/{id}/status", h.Reservation.UpdateStatus)
				})
			})

			// Administrative surface.
			pr.Group(func(ar chi.Router) {
				ar.Use(h.Auth.AdminOnly)

				ar.Route("/permissions", func(gr chi.Router) {
					gr.Get("/", h.Permission.GetGrants)
					gr.Post("/", h.Permission.MutateGrants)
				})

				ar.Get("/logs", h.AccessLog.GetLogs)

				ar.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.User.CreateUser)
					ur.Get("/", h.User.ListUsers)
					ur.Get("/{id}", h.User.GetUser)
					ur.Patch("/{id}", h.User.UpdateUser)
					ur.Delete("/{id}", h.User.DeleteUser)
					ur.Post("/{id}/credentials/{method}", h.User.RotateCredential)
				})

				ar.Route("/groups", func(gr chi.Router) {
					gr.Post("/", h.User.CreateGroup)
					gr.Get("/", h.User.ListGroups)
					gr.Delete("/{id}", h.User.DeleteGroup)
					gr.Get("/{id}/members", h.User.GroupMembers)
					gr.Post("/{id}/members", h.User.AddGroupMember)
					gr.Delete("/{id}/members/{userID}", h.User.RemoveGroupMember)
				})

				ar.Route("/locks", func(lr chi.Router) {
					lr.Post("/", h.Lock.CreateLock)
					lr.Get("/", h.Lock.ListLocks)
					lr.Get("/{id}", h.Lock.GetLock)
					lr.Patch("/{id}", h.Lock.UpdateLock)
					lr.Delete("/{id}", h.Lock.DeleteLock)
				})

				ar.Route("/lock-groups", func(lr chi.Router) {
					lr.Post("/", h.Lock.CreateGroup)
					lr.Get("/", h.Lock.ListGroups)
					lr.Delete("/{id}", h.Lock.DeleteGroup)
					lr.Get("/{id}/members", h.Lock.GroupMembers)
					lr.Post("/{id}/members", h.Lock.AddGroupMember)
					lr.Delete("/{id}/members/{lockID}", h.Lock.RemoveGroupMember)
				})
			})
		})
	})
}
