package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/finance"
	"github.com/clinicore/practice-backend/internal/task"
)

type RouterConfig struct {
	Bookings       *booking.Service
	Finance        *finance.Service
	Tasks          *task.Service
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Env            string
	Version        string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Practitioner-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Patient-facing lookup by confirmation code, no identity required.
	r.Get("/public/bookings/{code}", publicBookingHandler(cfg.Bookings))

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Route("/slots", func(r chi.Router) {
			r.Post("/", createSlotHandler(cfg.Bookings))
			r.Post("/generate", generateSlotsHandler(cfg.Bookings))
			r.Get("/", listSlotsHandler(cfg.Bookings))
			r.Get("/{id}", getSlotHandler(cfg.Bookings))
			r.Post("/{id}/block", blockSlotHandler(cfg.Bookings, true))
			r.Post("/{id}/open", blockSlotHandler(cfg.Bookings, false))
			r.Get("/{id}/bookings", listSlotBookingsHandler(cfg.Bookings))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", createBookingHandler(cfg.Bookings))
			r.Get("/", listBookingsHandler(cfg.Bookings))
			r.Get("/{ref}", getBookingHandler(cfg.Bookings))
			r.Post("/{ref}/status", transitionBookingHandler(cfg.Bookings))
		})

		mountDocuments := func(r chi.Router, ops documentOps) {
			r.Post("/", createDocumentHandler(ops))
			r.Get("/", listDocumentsHandler(ops))
			r.Get("/{id}", getDocumentHandler(ops))
			r.Put("/{id}", updateDocumentHandler(ops))
			r.Delete("/{id}", deleteDocumentHandler(ops))
		}
		r.Route("/sales", func(r chi.Router) { mountDocuments(r, saleOps(cfg.Finance)) })
		r.Route("/purchases", func(r chi.Router) { mountDocuments(r, purchaseOps(cfg.Finance)) })
		r.Route("/quotations", func(r chi.Router) { mountDocuments(r, quotationOps(cfg.Finance)) })

		r.Route("/ledger", func(r chi.Router) {
			r.Post("/", createEntryHandler(cfg.Finance))
			r.Get("/", listEntriesHandler(cfg.Finance))
			r.Get("/{id}", getEntryHandler(cfg.Finance))
			r.Put("/{id}", updateEntryHandler(cfg.Finance))
			r.Delete("/{id}", deleteEntryHandler(cfg.Finance))
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", createTaskHandler(cfg.Tasks))
			r.Get("/", listTasksHandler(cfg.Tasks))
			r.Get("/{id}", getTaskHandler(cfg.Tasks))
			r.Put("/{id}", updateTaskHandler(cfg.Tasks))
			r.Delete("/{id}", deleteTaskHandler(cfg.Tasks))
		})
	})

	return r
}
