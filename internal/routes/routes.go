package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/nextgendevs/ng-backend/internal/handlers"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/middleware"
)

type Handlers struct {
	System  *handlers.SystemHandler
	Auth    *handlers.AuthHandler
	Users   *handlers.UserHandler
	Devices *handlers.DeviceHandler
	Live    *handlers.LiveHandler
	Guard   *middleware.Guard
	Metrics *metrics.Metrics
}

func SetupRoutes(r chi.Router, h Handlers) {
	r.Get("/", h.System.Root)
	r.Get("/health", h.System.Health)
	r.Handle("/metrics", h.Metrics.Handler())

	// Auth routes
	r.Route("/api/auth", func(r chi.Router) {
		r.With(h.Guard.RejectIfLoggedIn).Post("/signup", h.Auth.Signup)
		r.With(h.Guard.RejectIfLoggedIn).Post("/login", h.Auth.Login)
		r.Get("/activate", h.Auth.Activate)
		r.Post("/logout", h.Auth.Logout)
	})

	// User routes: a session may only touch its own activated account
	r.Route("/api/users/{userId}", func(r chi.Router) {
		r.Use(h.Guard.RequireSession, h.Guard.RequireUserAccess)
		r.Get("/credentials", h.Users.GetCredentials)
		r.Patch("/credentials", h.Users.PatchCredentials)
		r.Delete("/", h.Users.Deactivate)
	})

	// Device routes
	r.Route("/api/devices", func(r chi.Router) {
		r.Get("/", h.Devices.List)
		r.Get("/nearest", h.Devices.Nearest)
		r.Get("/{deviceId}/measurements", h.Devices.GetMeasurements)
		r.With(h.Guard.RequireAccessKey).Post("/{deviceId}/measurements", h.Devices.PostMeasurements)

		r.Group(func(r chi.Router) {
			r.Use(h.Guard.RequireSession, h.Guard.RequireDeviceOwner)
			r.Get("/{deviceId}/credentials", h.Devices.GetCredentials)
			r.Patch("/{deviceId}/credentials", h.Devices.PatchCredentials)
			r.Get("/{deviceId}/live", h.Live.Stream)
		})
	})
}
