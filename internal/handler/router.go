package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/moviecatalog/internal/metrics"
	"github.com/hitoshi/moviecatalog/internal/middleware"
	"github.com/hitoshi/moviecatalog/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter // nilの場合はレート制限しない

	// 監視
	HealthChecker    HealthChecker
	MetricsCollector metrics.MetricsCollector // nilの場合はHTTPメトリクスを記録しない
	MetricsGatherer  prometheus.Gatherer      // nilの場合は/metricsを公開しない

	// 認証
	TokenIssuer      TokenIssuer
	Credentials      CredentialVerifier // nilの場合はPOST /api/auth/test-tokenを公開しない
	DemoTokenEnabled bool

	// 入力処理
	Validator   RequestValidator
	Sanitizer   security.TextSanitizer
	PageMaxSize int

	// エンティティ。nilの種別はルートを登録しない
	ActorService ActorServiceInterface
	MovieService MovieServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → Authentication → RateLimit
//
// 認証ゲートはリクエストを拒否しない。保護対象のルートだけがRequireAuthenticationを通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsCollector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))
	}
	r.Use(middleware.NewAuthenticationMiddleware(deps.TokenVerifier))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	authHandler := NewAuthHandler(deps.TokenIssuer, deps.Credentials)
	if deps.DemoTokenEnabled {
		r.Get("/api/auth/test-token", authHandler.DemoToken)
	}
	if deps.Credentials != nil {
		r.Post("/api/auth/test-token", authHandler.IssueToken)
	}

	requireAuth := middleware.NewRequireAuthenticationMiddleware()

	if deps.ActorService != nil {
		h := NewActorHandler(deps.ActorService, deps.Validator, deps.Sanitizer, deps.PageMaxSize)
		r.Route("/api/actors", func(r chi.Router) {
			r.Get("/search", h.Search)
			r.Get("/stats/requests", h.RequestCount)

			// --- 認証が必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/all", h.ListAll)
				r.Get("/paged", h.ListPaged)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		})
	}

	if deps.MovieService != nil {
		h := NewMovieHandler(deps.MovieService, deps.Validator, deps.Sanitizer, deps.PageMaxSize)
		r.Route("/api/movies", func(r chi.Router) {
			r.Get("/search", h.Search)
			r.Get("/stats/requests", h.RequestCount)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/all", h.ListAll)
				r.Get("/paged", h.ListPaged)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		})
	}

	return r
}
