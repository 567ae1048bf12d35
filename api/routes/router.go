package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quotecart/api/controllers"
	cartcontrollers "github.com/angelmondragon/quotecart/api/controllers/cart"
	catalogcontrollers "github.com/angelmondragon/quotecart/api/controllers/catalog"
	"github.com/angelmondragon/quotecart/api/middleware"
	"github.com/angelmondragon/quotecart/internal/catalog"
	"github.com/angelmondragon/quotecart/internal/savedcart"
	"github.com/angelmondragon/quotecart/pkg/config"
	"github.com/angelmondragon/quotecart/pkg/db"
	"github.com/angelmondragon/quotecart/pkg/logger"
	"github.com/angelmondragon/quotecart/pkg/metrics"
	"github.com/angelmondragon/quotecart/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService savedcart.Service,
	catalogSource catalog.Source,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	dependencies := map[string]controllers.Pinger{"database": nil, "redis": nil}
	if dbP != nil {
		dependencies["database"] = dbP
	}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		dependencies["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dependencies))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/blankets", catalogcontrollers.BlanketList(catalogSource, logg))
		r.Get("/surcharges", catalogcontrollers.SurchargeList(catalogSource, logg))
		r.Get("/discounts", catalogcontrollers.DiscountList(catalogSource, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Owner(logg))
		r.Get("/ping", controllers.CartPing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Get("/count", cartcontrollers.CartCount(cartService, logg))
			r.Get("/quotation", cartcontrollers.CartQuotation(cartService, nil, logg))

			r.Route("/items", func(r chi.Router) {
				r.With(middleware.Idempotency(idempotencyStore, cfg.Cart.IdempotencyTTL, logg)).
					Post("/", cartcontrollers.CartAddItem(cartService, logg))
				r.Patch("/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
				r.Delete("/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
			})
		})
	})

	return r
}
