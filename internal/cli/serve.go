package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/pointmart/backend/docs"
	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/handlers"
	"github.com/pointmart/backend/internal/logger"
	mW "github.com/pointmart/backend/internal/middleware"
	"github.com/pointmart/backend/internal/services"
	"github.com/pointmart/backend/internal/transport"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PointMart API
// @version 1.0
// @description Chat webhook and admin API of the PointMart image marketplace
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the webhook and admin HTTP server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := database.InitRedis(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	messenger := transport.NewGatewayClient(log, cfg.Bot.GatewayURL, cfg.Bot.GatewayTimeout)
	app := newApplication(cfg, log, db, rdb, messenger)

	docs.SwaggerInfo.Host = ""
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "env", cfg.App.Env, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// application is the wired service graph behind the HTTP server.
type application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	router    *services.EventRouter
	auth      *services.AuthService
	ledger    *services.LedgerService
	catalog   *services.CatalogService
	stats     *services.StatsService
	broadcast *services.BroadcastService
	audit     *services.AuditLogger
	qr        *services.QRService
}

// newApplication wires every service. Redis backs the session, pending
// purchase and collector stores when the session backend asks for it and a
// client is available; otherwise they live in process.
func newApplication(cfg *config.Config, log *logger.Logger, db *database.DB, rdb *redis.Client, messenger transport.Messenger) *application {
	var (
		sessions  services.SessionStore  = services.NewMemorySessionStore()
		pending   services.PendingStore  = services.NewMemoryPendingStore()
		collector services.FileCollector = services.NewMemoryCollector()
		limiter   services.SearchLimiter = services.NoopSearchLimiter{}
	)
	if rdb != nil {
		if cfg.Session.Backend == "redis" {
			sessions = services.NewRedisSessionStore(rdb, cfg.Session.TTL)
			pending = services.NewRedisPendingStore(rdb, cfg.Escrow.MaxPendingAge)
			collector = services.NewRedisCollector(rdb, cfg.Session.TTL)
		}
		limiter = services.NewRedisSearchLimiter(rdb, cfg.Search.Limit, cfg.Search.Window)
	} else if cfg.Session.Backend == "redis" {
		log.Warn("session backend is redis but Redis is unavailable, using in-memory stores")
	}

	messages := services.NewMessages(cfg)
	audit := services.NewAuditLogger(log, messenger, cfg.Bot.AuditChatID)
	ledger := services.NewLedgerService(db, log)
	catalog := services.NewCatalogService(db, cfg.Catalog, log)
	stats := services.NewStatsService(db, log)
	broadcast := services.NewBroadcastService(messenger, cfg.Broadcast.Concurrency, log)
	referrals := services.NewReferralService(db, ledger, audit, cfg.Referral.Reward, cfg.Bot.Name, log)
	qr := services.NewQRService(referrals, rdb, log)
	escrow := services.NewEscrowService(services.EscrowDeps{
		Catalog:   catalog,
		Ledger:    ledger,
		Pending:   pending,
		Messenger: messenger,
		Audit:     audit,
		Messages:  messages,
	}, cfg.Pricing.ImageCost, cfg.Escrow.MaxPendingAge, log)

	router := services.NewEventRouter(cfg.Bot, services.RouterDeps{
		Sessions:  sessions,
		Catalog:   catalog,
		Ledger:    ledger,
		Escrow:    escrow,
		Referrals: referrals,
		Broadcast: broadcast,
		Stats:     stats,
		Collector: collector,
		Limiter:   limiter,
		QR:        qr,
		Audit:     audit,
		Messenger: messenger,
		Messages:  messages,
	}, log)

	return &application{
		cfg:       cfg,
		log:       log,
		db:        db,
		router:    router,
		auth:      services.NewAuthService(cfg, log),
		ledger:    ledger,
		catalog:   catalog,
		stats:     stats,
		broadcast: broadcast,
		audit:     audit,
		qr:        qr,
	}
}

func (a *application) routes() http.Handler {
	events := handlers.NewEventsHandler(a.router, a.log)
	qr := handlers.NewQRHandler(a.qr, a.log)
	admin := handlers.NewAdminHandler(handlers.AdminDeps{
		Stats:     a.stats,
		Accounts:  a.ledger,
		Broadcast: a.broadcast,
		Catalog:   a.catalog,
		Audit:     a.audit,
	}, a.log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.WebhookSecretHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", a.health)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(mW.WebhookSecret(a.cfg.Bot.WebhookSecret)).Post("/events", events.Receive)
		r.Post("/auth/login", a.auth.Login)
		r.Get("/referrals/{userId}/qr", qr.ReferralQR)

		r.Route("/admin", func(r chi.Router) {
			r.Use(mW.AuthMiddleware(a.auth))

			r.Get("/stats", admin.Stats)
			r.Get("/users/{userId}/balance", admin.Balance)
			r.Post("/users/{userId}/adjust", admin.Adjust)
			r.Post("/broadcast", admin.Broadcast)
			r.Post("/catalog/batch", admin.CatalogBatch)
			r.Get("/catalog/{assetId}", admin.CatalogEntry)
		})
	})

	return r
}

func (a *application) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := a.db.PingContext(r.Context()); err != nil {
		a.log.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
