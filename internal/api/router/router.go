package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medicare-wellness/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/medicare-wellness/clinic-scheduler/internal/http/middleware"
	"github.com/medicare-wellness/clinic-scheduler/internal/webchat"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Health       *handlers.HealthHandler
	Availability *handlers.AvailabilityHandler
	Appointments *handlers.AppointmentsHandler
	Patients     *handlers.PatientsHandler
	Forms        *handlers.FormsHandler

	// Admin surface (optional, requires AdminAuthSecret)
	AdminReminders  *handlers.AdminRemindersHandler
	Export          *handlers.ExportHandler
	AdminAuthSecret string

	// Webchat assistant (optional)
	Webchat *webchat.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// BookingRatePerSecond throttles booking attempts per IP; zero disables.
	BookingRatePerSecond float64
	BookingBurst         int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/api", func(api chi.Router) {
			if cfg.Availability != nil {
				api.Get("/doctors", cfg.Availability.ListDoctors)
				api.Get("/doctors/{doctorID}/availability", cfg.Availability.GetSlots)
			}
			if cfg.Patients != nil {
				api.Post("/patients", cfg.Patients.Register)
			}
			if cfg.Appointments != nil {
				api.Route("/appointments", func(appts chi.Router) {
					if cfg.BookingRatePerSecond > 0 {
						appts.With(httpmiddleware.RateLimit(cfg.BookingRatePerSecond, cfg.BookingBurst)).
							Post("/", cfg.Appointments.Create)
					} else {
						appts.Post("/", cfg.Appointments.Create)
					}
					appts.Get("/{appointmentID}", cfg.Appointments.Get)
					appts.Delete("/{appointmentID}", cfg.Appointments.Cancel)
					appts.Get("/{appointmentID}/reminders", cfg.Appointments.ListReminders)
				})
			}
			if cfg.Forms != nil {
				api.Post("/forms/complete", cfg.Forms.Complete)
			}
		})

		if cfg.Webchat != nil {
			public.Route("/chat", func(chat chi.Router) {
				chat.Get("/ws", cfg.Webchat.HandleWebSocket)
				chat.Post("/message", cfg.Webchat.HandleMessage)
				chat.Get("/history", cfg.Webchat.HandleHistory)
			})
		}
	})

	// Admin endpoints behind JWT auth
	r.Route("/api/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if cfg.Appointments != nil {
			admin.Post("/appointments/{appointmentID}/complete", cfg.Appointments.Complete)
		}
		if cfg.Forms != nil {
			admin.Post("/appointments/{appointmentID}/send-forms", cfg.Forms.Send)
		}
		if cfg.Patients != nil {
			admin.Get("/patients/{patientID}", cfg.Patients.Get)
		}
		if cfg.AdminReminders != nil {
			admin.Get("/reminders", cfg.AdminReminders.List)
			admin.Post("/reminders/dispatch", cfg.AdminReminders.Dispatch)
		}
		if cfg.Export != nil {
			admin.Get("/export/appointments", cfg.Export.Appointments)
			admin.Get("/export/availability", cfg.Export.Availability)
		}
	})

	return r
}
