package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OmarEhab007/cargoparts-sub002/api/controllers"
	ordercontrollers "github.com/OmarEhab007/cargoparts-sub002/api/controllers/orders"
	webhookcontrollers "github.com/OmarEhab007/cargoparts-sub002/api/controllers/webhooks"
	"github.com/OmarEhab007/cargoparts-sub002/api/middleware"
	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/internal/payments"
	"github.com/OmarEhab007/cargoparts-sub002/internal/reconciler"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/redis"
)

// RouterParams carries everything the HTTP surface dispatches to. Pingers and
// the metrics collaborators may be nil.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          redis.Pinger
	Redis       redis.Pinger
	Idempotency redis.IdempotencyStore
	Orders      orders.Service
	Payments    payments.Service
	Reconciler  reconciler.Reconciler
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/{provider}", webhookcontrollers.Receive(p.Reconciler, logg))
	})

	// Idempotency is attached per route so the matched pattern is known when it runs.
	idempotent := middleware.Idempotency(p.Idempotency, logg)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleBuyer, enums.UserRoleAdmin))
			r.With(idempotent).Post("/", ordercontrollers.Create(p.Orders, logg))
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.With(idempotent).Post("/{orderId}/payments", ordercontrollers.StartPayment(p.Payments, logg))
			r.With(idempotent).Post("/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
		})

		r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))

		r.With(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin)).
			Post("/{orderId}/status", ordercontrollers.Advance(p.Orders, logg))
	})

	return r
}
