package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"foco/internal/auth"
	"foco/internal/cache"
	"foco/internal/core"
	"foco/internal/dashboard"
	"foco/internal/gateway"
	applog "foco/internal/log"
	"foco/internal/middleware/ratelimit"
	"foco/internal/middleware/security"
	"foco/internal/middleware/trace"
	"foco/internal/services"
	appweb "foco/web"
)

// Deps are the application services the handlers call.
type Deps struct {
	Gateway      *gateway.Gateway
	Ledgers      *services.LedgerService
	Transactions *services.TransactionService
	Dashboard    dashboard.Loader
	Accounts     auth.Provider
	// Google is optional; the /auth/google routes answer 404 without it.
	Google   auth.FederatedProvider
	Sessions *auth.Sessions
	// PublicCache is shared with the gateway, which evicts a slug whenever
	// its ledger changes.
	PublicCache *cache.LRUCache[core.PublicLedger]
}

type Options struct {
	RateLimitPerMinute int
	// SecureCookies marks the session cookie Secure. Enable behind https.
	SecureCookies bool
	Logger        *applog.Logger
}

type appMetrics struct {
	uptime        time.Time
	recordsSaved  int64
	pendingWrites int64
	shadowErrors  int64
	signIns       int64
}

// Server is the JSON API plus the public ledger page.
type Server struct {
	http.Server
	deps             Deps
	templates        *template.Template
	logger           *applog.Logger
	events           *applog.StructuredLogger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
	appMetrics       *appMetrics
	secureCookies    bool
	now              func() time.Time
	shutdownOnce     sync.Once
}

// NewServer configures routes, middleware and templates.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if deps.PublicCache == nil {
		deps.PublicCache = cache.NewLRUCache[core.PublicLedger](200, time.Minute)
	}

	s := &Server{
		deps:             deps,
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{uptime: time.Now()},
		secureCookies:    opts.SecureCookies,
		now:              time.Now,
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(deps.PublicCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").Write(w)
	})
	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	authLog := applog.ComponentMiddleware(applog.ComponentAuth)
	mux.Handle("POST /auth/signup", authLog(http.HandlerFunc(s.handleSignUp)))
	mux.Handle("POST /auth/signin", authLog(http.HandlerFunc(s.handleSignIn)))
	mux.Handle("POST /auth/signout", authLog(http.HandlerFunc(s.handleSignOut)))
	mux.Handle("GET /auth/google", authLog(http.HandlerFunc(s.handleGoogleStart)))
	mux.Handle("GET /auth/google/callback", authLog(http.HandlerFunc(s.handleGoogleCallback)))
	mux.Handle("GET /auth/state", authLog(s.requireAuth(s.handleAuthState)))
	mux.Handle("PUT /auth/profile", authLog(s.requireAuth(s.handleUpdateProfile)))
	mux.Handle("GET /settings/theme", s.requireAuth(s.handleGetTheme))
	mux.Handle("PUT /settings/theme", s.requireAuth(s.handleSetTheme))

	mux.Handle("GET /api/dashboard", s.requireAuth(s.handleDashboard))

	mux.Handle("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))
	mux.Handle("POST /api/netpay", s.requireAuth(s.handleNetPay))

	mux.Handle("GET /api/ledgers", s.requireAuth(s.handleListLedgers))
	mux.Handle("POST /api/ledgers", s.requireAuth(s.handleCreateLedger))
	mux.Handle("GET /api/ledgers/{id}", s.requireAuth(s.handleGetLedger))
	mux.Handle("DELETE /api/ledgers/{id}", s.requireAuth(s.handleDeleteLedger))
	mux.Handle("PUT /api/ledgers/{id}/public", s.requireAuth(s.handleSetPublic))
	mux.Handle("POST /api/ledgers/{id}/entries", s.requireAuth(s.handleAddEntry))
	mux.Handle("PUT /api/ledgers/{id}/entries/{entryID}", s.requireAuth(s.handleUpdateEntry))
	mux.Handle("DELETE /api/ledgers/{id}/entries/{entryID}", s.requireAuth(s.handleDeleteEntry))
	mux.Handle("POST /api/ledgers/{id}/entries/{entryID}/toggle", s.requireAuth(s.handleToggleEntry))
	mux.Handle("POST /api/ledgers/{id}/settle", s.requireAuth(s.handleSettleMonth))

	mux.HandleFunc("GET /public/{slug}", s.handlePublicPage)
	mux.HandleFunc("GET /api/public/{slug}", s.handlePublicJSON)
}

// Shutdown stops the background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// log returns the request-scoped logger installed by the trace middleware.
func (s *Server) log(r *http.Request) *applog.Logger {
	l := applog.FromContext(r.Context())
	if l.Component() == "unknown" {
		return s.logger
	}
	return l
}
