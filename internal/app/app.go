package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kenta/otolog/internal/auth"
	"github.com/kenta/otolog/internal/config"
	"github.com/kenta/otolog/internal/database"
	"github.com/kenta/otolog/internal/handler"
	"github.com/kenta/otolog/internal/logger"
	"github.com/kenta/otolog/internal/metrics"
	"github.com/kenta/otolog/internal/middleware"
	"github.com/kenta/otolog/internal/proxy"
	"github.com/kenta/otolog/internal/ratelimit"
	"github.com/kenta/otolog/internal/session"
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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はゲートウェイサーバーモードで起動する。
// レート制限ストアと全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. レート制限ストアの初期化
	tiers := ratelimit.Tiers{
		AI:      ratelimit.Config{Name: "ai", MaxRequests: cfg.RateLimitAI, Window: cfg.RateLimitWindow},
		Spotify: ratelimit.Config{Name: "spotify", MaxRequests: cfg.RateLimitSpotify, Window: cfg.RateLimitWindow},
		General: ratelimit.Config{Name: "general", MaxRequests: cfg.RateLimitGeneral, Window: cfg.RateLimitWindow},
	}

	var store ratelimit.Store
	switch cfg.RateLimitStore {
	case config.StorePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		pgStore := ratelimit.NewPostgresStore(db)
		store = pgStore

		// 期限切れエントリの定期削除
		go func() {
			ticker := time.NewTicker(cfg.RateLimitSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := pgStore.Sweep(ctx); err != nil {
						slog.Error("rate limit sweep failed", slog.String("error", err.Error()))
					}
				}
			}
		}()
	default:
		memStore := ratelimit.NewMemoryStore(cfg.RateLimitSweepInterval)
		defer memStore.Stop()
		store = memStore
	}

	// 3. 認証・セッションサービスの初期化
	provider := auth.NewSpotifyOAuthProvider(auth.SpotifyOAuthConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURL,
	})
	cookieStore := session.NewCookieStore(cfg.SessionSecret, cfg.CookieSecure, cfg.CookieDomain)
	sessionManager := session.NewManager(cookieStore, provider, cfg.RefreshTimeout, collector)

	// 4. 転送先の初期化
	spotifyProxy := proxy.NewSpotifyProxy(proxy.SpotifyProxyConfig{
		Timeout: cfg.ProxyTimeout,
		Rate:    cfg.SpotifyAPIRate,
		Burst:   cfg.SpotifyAPIBurst,
	}, collector)

	upstream, err := handler.NewUpstreamProxy(cfg.UpstreamURL)
	if err != nil {
		return fmt.Errorf("failed to build upstream proxy: %w", err)
	}

	// 5. ルーターの構築
	deps := &handler.RouterDeps{
		Store: store,
		Tiers: tiers,
		Gatekeeper: middleware.GatekeeperConfig{
			TeaserMode:        cfg.TeaserMode,
			TeaserAllowedPath: cfg.TeaserAllowedPath,
			DefaultLocale:     cfg.DefaultLocale,
		},

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SecureTransport:   cfg.CookieSecure,

		AuthService: provider,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieSecure: cfg.CookieSecure,
		},
		SessionStore:   cookieStore,
		SessionManager: sessionManager,

		SpotifyProxy: spotifyProxy,
		Upstream:     upstream,

		Metrics:  collector,
		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("gateway server starting",
			slog.String("addr", server.Addr),
			slog.String("rate_limit_store", string(cfg.RateLimitStore)),
			slog.Bool("teaser_mode", cfg.TeaserMode),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down gateway server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
