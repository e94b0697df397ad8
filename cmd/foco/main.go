package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"foco/internal/auth"
	"foco/internal/backend"
	"foco/internal/cache"
	"foco/internal/cli"
	"foco/internal/core"
	"foco/internal/dashboard"
	"foco/internal/device"
	"foco/internal/gateway"
	apphttp "foco/internal/http"
	applog "foco/internal/log"
	"foco/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	// Users always live in SQLite, whatever the remote backend is.
	users := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer users.Close()

	var kv device.KV = device.NewMemoryKV()
	if cfg.DeviceDBPath != "" {
		deviceDB := cli.InitSQLite(logger, cfg.DeviceDBPath)
		defer deviceDB.Close()
		kv = deviceDB.KV()
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if bcfg.Type == backend.SQLiteBackend {
		bcfg.Shared = users
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	publicCache := cache.NewLRUCache[core.PublicLedger](500, cfg.PublicCacheTTL)
	gw := gateway.New(res.Store, kv, gateway.Options{
		Publisher:      res.Publisher,
		OnPublicChange: publicCache.Delete,
		SystemTheme:    core.Theme(cfg.DefaultTheme),
	})

	ledgers := services.NewLedgerService(gw.Ledgers)
	transactions := services.NewTransactionService(gw.Transactions)

	deps := apphttp.Deps{
		Gateway:      gw,
		Ledgers:      ledgers,
		Transactions: transactions,
		Dashboard:    dashboard.Loader{Transactions: transactions, Ledgers: ledgers},
		Accounts:     auth.NewLocalProvider(users),
		Sessions:     auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL),
		PublicCache:  publicCache,
	}
	if cfg.GoogleSignInEnabled() {
		deps.Google = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleOAuthClientID,
			ClientSecret: cfg.GoogleOAuthClientSecret,
			RedirectURL:  cfg.GoogleOAuthRedirectURL,
		}, users)
		logger.Info("Google sign-in enabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting foco server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"device_db", cfg.DeviceDBPath != "",
		"reconcile_publisher", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
