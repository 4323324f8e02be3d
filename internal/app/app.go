package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/moviecatalog/internal/actor"
	"github.com/hitoshi/moviecatalog/internal/auth"
	"github.com/hitoshi/moviecatalog/internal/cache"
	"github.com/hitoshi/moviecatalog/internal/config"
	"github.com/hitoshi/moviecatalog/internal/database"
	"github.com/hitoshi/moviecatalog/internal/handler"
	"github.com/hitoshi/moviecatalog/internal/logger"
	"github.com/hitoshi/moviecatalog/internal/metrics"
	"github.com/hitoshi/moviecatalog/internal/middleware"
	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/movie"
	"github.com/hitoshi/moviecatalog/internal/repository"
	"github.com/hitoshi/moviecatalog/internal/security"
	"github.com/hitoshi/moviecatalog/internal/validation"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		return runMigrate(cfg, rest)
	default:
		return runServe(cfg, kindsFor(cmd))
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, kinds serviceKinds) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	// 2. 依存関係のワイヤリング
	c, err := buildComponents(cfg, db, kinds)
	if err != nil {
		return err
	}
	defer c.Close()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      c.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("actors", kinds.actors),
			slog.Bool("movies", kinds.movies),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// components はHTTPサーバーが保持する長寿命の依存関係。
type components struct {
	handler     http.Handler
	registry    *prometheus.Registry
	rateLimiter *middleware.RateLimiter
	cache       *cache.Store
}

// Close はバックグラウンドのゴルーチンを停止する。
func (c *components) Close() {
	c.rateLimiter.Stop()
	c.cache.Close()
}

// buildComponents は設定とDB接続から全依存関係を組み立てる。
// kindsで指定されなかったエンティティのルートは登録しない。
func buildComponents(cfg *config.Config, db *sql.DB, kinds serviceKinds) (*components, error) {
	// 1. 設定値の解釈（失敗しうるものを先に行う）
	cacheCfg, err := cache.ParseSpec(cfg.CacheSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SPEC: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Expiration: cfg.JWTExpiration,
		Issuer:     cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set, tokens are signed with a per-process random key")
	}

	checker, err := auth.NewCredentialChecker(cfg.AuthUsername, cfg.AuthPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential checker: %w", err)
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. キャッシュとレート制限
	store := cache.NewStore(cacheCfg, collector)
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral))

	slog.Info("cache configured",
		slog.Uint64("max_entries", cacheCfg.MaxEntries),
		slog.Duration("ttl", cacheCfg.TTL),
		slog.Bool("touch_on_hit", cacheCfg.TouchOnHit),
	)

	// 4. ルーター依存
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:    db,
		MetricsCollector: collector,
		MetricsGatherer:  reg,

		TokenIssuer:      tokens,
		DemoTokenEnabled: cfg.AuthDemoToken,

		Validator:   validation.New(nil),
		Sanitizer:   security.NewTextSanitizer(),
		PageMaxSize: cfg.PageMaxSize,
	}
	// 無効時はインターフェースにnilポインタを入れず、nilのままにする
	if checker != nil {
		deps.Credentials = checker
	}

	// 5. エンティティごとのサービス
	if kinds.actors {
		counter := metrics.NewRequestCounter()
		collector.RegisterRequestCounter(string(model.KindActors), counter)
		deps.ActorService = actor.NewService(repository.NewPostgresActorRepo(db), store, counter)
	}
	if kinds.movies {
		counter := metrics.NewRequestCounter()
		collector.RegisterRequestCounter(string(model.KindMovies), counter)
		deps.MovieService = movie.NewService(repository.NewPostgresMovieRepo(db), store, counter)
	}

	return &components{
		handler:     handler.NewRouter(deps),
		registry:    reg,
		rateLimiter: rateLimiter,
		cache:       store,
	}, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしの場合はすべての未適用マイグレーションを順番に適用し、
// "down"の場合はすべてのマイグレーションを取り消す。
func runMigrate(cfg *config.Config, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch direction {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown migrate direction %q (want up or down)", direction)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
