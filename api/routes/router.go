package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexmarkets/crm-backend/api/controllers"
	webhookcontrollers "github.com/apexmarkets/crm-backend/api/controllers/webhooks"
	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/internal/accounts"
	authsvc "github.com/apexmarkets/crm-backend/internal/auth"
	"github.com/apexmarkets/crm-backend/internal/deposits"
	"github.com/apexmarkets/crm-backend/internal/kyc"
	"github.com/apexmarkets/crm-backend/internal/ledger"
	"github.com/apexmarkets/crm-backend/internal/paymentmethods"
	"github.com/apexmarkets/crm-backend/internal/users"
	"github.com/apexmarkets/crm-backend/internal/withdrawals"
	cregiswebhook "github.com/apexmarkets/crm-backend/internal/webhooks/cregis"
	"github.com/apexmarkets/crm-backend/pkg/config"
	"github.com/apexmarkets/crm-backend/pkg/db"
	"github.com/apexmarkets/crm-backend/pkg/logger"
	"github.com/apexmarkets/crm-backend/pkg/redis"
)

type Services struct {
	Auth           authsvc.Service
	Users          users.Service
	Accounts       accounts.Service
	Deposits       deposits.Service
	Withdrawals    withdrawals.Service
	KYC            kyc.Service
	PaymentMethods paymentmethods.Service
	Ledger         ledger.Service
	CregisWebhook  *cregiswebhook.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/cregis", webhookcontrollers.CregisWebhook(svcs.CregisWebhook, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(svcs.Users, logg))
			r.Patch("/me", controllers.UserUpdateMe(svcs.Users, logg))
			r.With(middleware.RequireAdmin(logg)).Get("/", controllers.AdminUserList(svcs.Users, logg))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", controllers.AccountCreate(svcs.Accounts, logg))
			r.Get("/", controllers.AccountList(svcs.Accounts, logg))
			r.Get("/{accountId}", controllers.AccountGet(svcs.Accounts, logg))
		})

		r.Route("/deposits", func(r chi.Router) {
			r.Post("/", controllers.DepositCreate(svcs.Deposits, logg))
			r.Get("/", controllers.DepositList(svcs.Deposits, logg))
			r.Get("/{depositId}", controllers.DepositGet(svcs.Deposits, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", controllers.WithdrawalCreate(svcs.Withdrawals, logg))
			r.Get("/", controllers.WithdrawalList(svcs.Withdrawals, logg))
			r.Get("/{withdrawalId}", controllers.WithdrawalGet(svcs.Withdrawals, logg))
			r.Post("/{withdrawalId}/cancel", controllers.WithdrawalCancel(svcs.Withdrawals, logg))
		})

		r.Route("/kyc", func(r chi.Router) {
			r.Get("/", controllers.KYCGet(svcs.KYC, logg))
			r.Post("/", controllers.KYCSubmit(svcs.KYC, logg))
		})

		r.Route("/payment-methods", func(r chi.Router) {
			r.Post("/", controllers.PaymentMethodCreate(svcs.PaymentMethods, logg))
			r.Get("/", controllers.PaymentMethodList(svcs.PaymentMethods, logg))
			r.Delete("/{paymentMethodId}", controllers.PaymentMethodDelete(svcs.PaymentMethods, logg))
		})

		r.Get("/ledger", controllers.LedgerList(svcs.Ledger, logg))
	})

	return r
}
