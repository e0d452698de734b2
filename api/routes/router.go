package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockroomhq/stockroom-backend/api/controllers"
	"github.com/stockroomhq/stockroom-backend/api/middleware"
	dashboardsvc "github.com/stockroomhq/stockroom-backend/internal/dashboard"
	ledgersvc "github.com/stockroomhq/stockroom-backend/internal/ledger"
	productsvc "github.com/stockroomhq/stockroom-backend/internal/products"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	pkgredis "github.com/stockroomhq/stockroom-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers. idempotencyStore
// and redisPinger stay nil when Redis is not configured.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger db.Pinger

	RedisPinger      pkgredis.Pinger
	IdempotencyStore pkgredis.IdempotencyStore

	ProductService   productsvc.Service
	LedgerService    ledgersvc.Service
	DashboardService dashboardsvc.Service

	MetricsRegistry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.ProductService, logg))
		r.Post("/", controllers.CreateProduct(deps.ProductService, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.ProductService, logg))
		r.Put("/{productId}", controllers.UpdateProduct(deps.ProductService, logg))
		r.Delete("/{productId}", controllers.DeleteProduct(deps.ProductService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(deps.LedgerService, logg))
			r.Post("/", controllers.CreateSale(deps.LedgerService, logg))
		})
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", controllers.ListExpenses(deps.LedgerService, logg))
			r.Post("/", controllers.CreateExpense(deps.LedgerService, logg))
		})
	})

	r.Get("/dashboard", controllers.Dashboard(deps.DashboardService, logg))

	return r
}
