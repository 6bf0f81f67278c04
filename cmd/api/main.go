package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"librarian/internal/book"
	"librarian/internal/config"
	"librarian/internal/httpx"
	"librarian/internal/lending"
	"librarian/internal/payment"
	"librarian/internal/platform/paygateway"
	"librarian/internal/report"
	"librarian/internal/store/memstore"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxRequestBytes = 1 << 20

type stores struct {
	books  book.Repository
	loans  lending.Repository
	ledger payment.Ledger
	ready  func(ctx context.Context) error
}

type app struct {
	books    *book.Service
	lending  *lending.Service
	payments *payment.Service
	reports  *report.Service
	gateway  payment.Gateway
	ready    func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	st, closeStore := mustOpenStore(cfg, logger)
	defer closeStore()

	a := newApp(st, newGateway(cfg, logger), logger)

	var handler http.Handler = newRouter(a)
	handler = httpx.RequestSizeLimitMiddleware(maxRequestBytes)(handler)
	limiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()
	handler = limiter.Middleware(handler)
	handler = httpx.CORSMiddleware(cfg.CORSOrigins)(handler)
	handler = httpx.SecurityHeadersMiddleware(cfg.EnableHSTS)(handler)
	handler = httpx.RecoveryMiddleware(logger)(handler)
	handler = httpx.AccessLogMiddleware(logger)(handler)
	handler = httpx.RequestIDMiddleware(handler)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("server stopped")
}

func newApp(st stores, gw payment.Gateway, logger *slog.Logger) *app {
	books := book.NewService(st.books, book.WithLogger(logger))
	loans := lending.NewService(st.loans, books, lending.WithLogger(logger))
	return &app{
		books:    books,
		lending:  loans,
		payments: payment.NewService(loans, books, st.ledger, payment.WithLogger(logger)),
		reports:  report.NewService(loans),
		gateway:  gw,
		ready:    st.ready,
	}
}

func newRouter(a *app) *http.ServeMux {
	bookHandler := book.NewHTTPHandler(a.books)
	lendingHandler := lending.NewHTTPHandler(a.lending)
	paymentHandler := payment.NewHTTPHandler(a.payments, a.gateway)
	reportHandler := report.NewHTTPHandler(a.reports)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /v1/books", bookHandler.List)
	router.HandleFunc("POST /v1/books", bookHandler.Create)
	router.HandleFunc("GET /v1/books/search", bookHandler.Search)
	router.HandleFunc("GET /v1/books/{id}", bookHandler.Get)

	router.HandleFunc("POST /v1/loans", lendingHandler.Borrow)
	router.HandleFunc("POST /v1/returns", lendingHandler.Return)
	router.HandleFunc("GET /v1/patrons/{id}/fees/{book_id}", lendingHandler.Fee)
	router.HandleFunc("GET /v1/patrons/{id}/report", reportHandler.Get)

	router.HandleFunc("POST /v1/payments", paymentHandler.Pay)
	router.HandleFunc("POST /v1/refunds", paymentHandler.Refund)

	return router
}

func mustOpenStore(cfg config.Config, logger *slog.Logger) (stores, func()) {
	if cfg.Store == config.StoreMemory {
		mem := memstore.New()
		logger.Warn("using in-memory store; data is lost on restart")
		return stores{
			books:  mem,
			loans:  mem,
			ledger: mem,
			ready:  func(context.Context) error { return nil },
		}, func() {}
	}

	pool := mustOpenDB(cfg.DBDSN, logger)
	return stores{
		books:  book.NewPostgresRepo(pool, cfg.DBTimeout),
		loans:  lending.NewPostgresRepo(pool, cfg.DBTimeout),
		ledger: payment.NewPostgresLedger(pool, cfg.DBTimeout),
		ready:  pool.Ping,
	}, pool.Close
}

func newGateway(cfg config.Config, logger *slog.Logger) payment.Gateway {
	if cfg.GatewayURL == "" {
		logger.Warn("PAYMENT_GATEWAY_URL not set; using sandbox gateway")
		return paygateway.NewSandbox()
	}
	return paygateway.NewClient(cfg.GatewayURL, cfg.GatewayKey,
		paygateway.WithRateLimit(cfg.GatewayRPS),
		paygateway.WithRetries(cfg.GatewayRetries, 500*time.Millisecond),
	)
}

func mustOpenDB(dsn string, logger *slog.Logger) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error("cannot create db pool", "err", err)
		os.Exit(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logger.Error("cannot ping database", "dsn", redactDSN(dsn), "err", err)
		os.Exit(1)
	}
	logger.Info("database connection OK")
	return pool
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
