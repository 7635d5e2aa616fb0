package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vantagefund/wallet-engine/api/controllers"
	"github.com/vantagefund/wallet-engine/api/middleware"
	"github.com/vantagefund/wallet-engine/internal/conversions"
	"github.com/vantagefund/wallet-engine/internal/deposits"
	"github.com/vantagefund/wallet-engine/internal/ledger"
	"github.com/vantagefund/wallet-engine/internal/positions"
	"github.com/vantagefund/wallet-engine/internal/withdrawals"
	"github.com/vantagefund/wallet-engine/pkg/config"
	"github.com/vantagefund/wallet-engine/pkg/enums"
	"github.com/vantagefund/wallet-engine/pkg/logger"
	pkgredis "github.com/vantagefund/wallet-engine/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Ledger      ledger.Service
	Deposits    deposits.Service
	Withdrawals withdrawals.Service
	Conversions conversions.Service
	Positions   positions.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	readiness := map[string]controllers.Pinger{"postgres": dbPinger}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/wallet/balances", controllers.WalletBalances(svcs.Ledger, logg))
		r.Get("/wallet/ledger", controllers.WalletLedger(svcs.Ledger, logg))

		r.Route("/deposits", func(r chi.Router) {
			r.Post("/", controllers.DepositCreate(svcs.Deposits, logg))
			r.Get("/", controllers.DepositList(svcs.Deposits, logg))
		})

		r.Route("/withdrawal-methods", func(r chi.Router) {
			r.Post("/", controllers.WithdrawalMethodCreate(svcs.Withdrawals, logg))
			r.Get("/", controllers.WithdrawalMethodList(svcs.Withdrawals, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", controllers.WithdrawalCreate(svcs.Withdrawals, logg))
			r.Get("/", controllers.WithdrawalList(svcs.Withdrawals, logg))
		})

		r.Route("/conversions", func(r chi.Router) {
			r.Post("/quote", controllers.ConversionQuote(svcs.Conversions, logg))
			r.Post("/", controllers.ConversionCreate(svcs.Conversions, logg))
			r.Get("/", controllers.ConversionList(svcs.Conversions, logg))
		})

		r.Get("/tiers", controllers.TierList(svcs.Positions, logg))

		r.Route("/positions", func(r chi.Router) {
			r.Post("/", controllers.PositionOpen(svcs.Positions, logg))
			r.Get("/", controllers.PositionList(svcs.Positions, logg))
			r.Post("/merge", controllers.PositionMerge(svcs.Positions, logg))
			r.Post("/{id}/claim", controllers.PositionClaim(svcs.Positions, logg))
			r.Post("/{id}/upgrade", controllers.PositionUpgrade(svcs.Positions, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.RoleSupport), string(enums.RoleSuperadmin)))
			r.Post("/deposits/{id}/decision", controllers.AdminDepositDecide(svcs.Deposits, logg))
			r.Post("/withdrawals/{id}/decision", controllers.AdminWithdrawalDecide(svcs.Withdrawals, logg))
		})
	})

	return r
}
