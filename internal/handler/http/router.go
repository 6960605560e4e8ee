package http

import (
	"net/http"

	"payeveryone/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Services struct {
	Auth        port.AuthService
	Users       port.UserService
	History     port.HistoryService
	Deposits    port.DepositService
	Withdrawals port.WithdrawalService
	Exchanges   port.ExchangeService
	Market      port.MarketService
	Events      port.EventBus
}

type RouterConfig struct {
	CORSOrigins []string
	// FilesDir, when set, is served under /files for the local blob store.
	FilesDir string
}

func NewRouter(svc Services, cfg RouterConfig, log *zap.Logger) *chi.Mux {
	var (
		authH       = NewAuthHandler(svc.Auth, log)
		userH       = NewUserHandler(svc.Users, svc.History, log)
		depositH    = NewDepositHandler(svc.Deposits, log)
		withdrawalH = NewWithdrawalHandler(svc.Withdrawals, log)
		exchangeH   = NewExchangeHandler(svc.Exchanges, log)
		marketH     = NewMarketHandler(svc.Market, log)
		streamH     = NewStreamHandler(svc.Events, cfg.CORSOrigins, log)
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.FilesDir))))
	}

	r.Post("/auth/signup", authH.SignUp)
	r.Post("/auth/signin", authH.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(Authenticated(svc.Auth, log))

		r.Post("/auth/signout", authH.SignOut)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", userH.Me)
			r.Put("/withdraw-pin", userH.SetWithdrawPIN)
			r.Put("/payout", userH.SetPayout)
			r.Get("/history", userH.MyHistory)
		})

		r.Post("/deposits", depositH.Create)
		r.Get("/deposits", depositH.ListMine)
		r.Post("/withdrawals", withdrawalH.Create)
		r.Get("/withdrawals", withdrawalH.ListMine)
		r.Get("/withdrawals/{id}", withdrawalH.Get)
		r.Post("/exchanges", exchangeH.Create)
		r.Get("/exchanges", exchangeH.ListMine)

		r.Get("/market/prices", marketH.Prices)
		r.Get("/payment-methods/usdt", marketH.DepositAddress)
		r.Get("/payment-methods/qr", marketH.UPIQRCode)

		r.Get("/ws", streamH.Serve)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnly)

			r.Get("/dashboard", userH.Dashboard)
			r.Get("/users", userH.List)
			r.Post("/users/{id}/credit", userH.Credit)
			r.Get("/users/{id}/history", userH.UserHistory)
			r.Get("/bets", userH.Bets)

			r.Get("/deposits", depositH.ListByStatus)
			r.Post("/deposits/{id}/approve", depositH.Approve)
			r.Post("/deposits/{id}/reject", depositH.Reject)

			r.Get("/withdrawals", withdrawalH.ListByStatus)
			r.Post("/withdrawals/{id}/approve", withdrawalH.Approve)
			r.Post("/withdrawals/{id}/reject", withdrawalH.Reject)

			r.Get("/exchanges", exchangeH.ListByStatus)
			r.Post("/exchanges/{id}/approve", exchangeH.Approve)
			r.Post("/exchanges/{id}/reject", exchangeH.Reject)
			r.Post("/exchanges/{id}/fail", exchangeH.Fail)

			r.Put("/market/prices", marketH.UpdatePrices)
			r.Put("/payment-methods/usdt", marketH.UpdateDepositAddress)
			r.Put("/payment-methods/qr", marketH.UpdateUPIQRCode)
		})
	})

	return r
}
