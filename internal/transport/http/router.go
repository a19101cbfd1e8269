package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xlink-api/internal/application/otp"
	"github.com/xlink-api/internal/application/registry"
	"github.com/xlink-api/internal/config"
	"github.com/xlink-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/xlink-api/internal/infrastructure/jwt"
	redisinfra "github.com/xlink-api/internal/infrastructure/redis"
	"github.com/xlink-api/internal/infrastructure/sns"
	"github.com/xlink-api/internal/transport/http/handler"
	appmiddleware "github.com/xlink-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	SubdomainRepo *dynamo.SubdomainRepo
	CodeRepo      *dynamo.CodeRepo
	SessionRepo   *dynamo.SessionRepo
	RateLimiter   *redisinfra.MarkerStore
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
}

// NewRouter builds and returns the application router. Tenant hosts are
// dispatched to the public page handler; everything else hits the main API.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Subdomain(cfg.BaseDomain))

	var authMw, optionalAuthMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
		optionalAuthMw = appmiddleware.OptionalAuth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
		optionalAuthMw = authMw
	}

	// 5 requests/second with a burst of 10 for sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrySvc := registry.NewService(registry.ServiceDeps{
		SubdomainRepo: deps.SubdomainRepo,
	})
	// A nil *Provider must stay a nil interface, or the signer check in the
	// service never fires.
	var signer otp.JWTSigner
	if deps.JWTProvider != nil {
		signer = deps.JWTProvider
	}
	otpSvc := otp.NewService(otp.ServiceDeps{
		UserRepo:        deps.UserRepo,
		CodeRepo:        deps.CodeRepo,
		SessionRepo:     deps.SessionRepo,
		RateLimiter:     deps.RateLimiter,
		SMSSender:       deps.SMSSender,
		JWTProvider:     signer,
		CodeTTL:         cfg.OTPCodeTTL,
		RequestCooldown: cfg.OTPRequestCooldown,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})

	healthH := handler.NewHealthHandler()
	subdomainH := handler.NewSubdomainHandler(registrySvc)
	otpH := handler.NewOTPHandler(otpSvc)
	sessionH := handler.NewSessionHandler(deps.SessionRepo, deps.UserRepo)
	tenantH := handler.NewTenantHandler(registrySvc)

	tenantRouter := chi.NewRouter()
	tenantRouter.Get("/", tenantH.PublicPage)

	// Host-shape dispatch: requests addressed to a tenant label never reach
	// the main API routes.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if appmiddleware.SubdomainFromContext(req.Context()) != "" {
				tenantRouter.ServeHTTP(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(optionalAuthMw).Get("/subdomains/check", subdomainH.Check)
		r.With(sensitiveRL.Limit).Post("/auth/otp/request", otpH.Request)
		r.With(sensitiveRL.Limit).Post("/auth/otp/verify", otpH.Verify)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Post("/subdomains/claim", subdomainH.Claim)
			r.Get("/subdomains/mine", subdomainH.Current)
			r.Delete("/subdomains/mine", subdomainH.Deactivate)
		})
	})

	return r
}
