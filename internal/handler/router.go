package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kenta/otolog/internal/metrics"
	"github.com/kenta/otolog/internal/middleware"
	"github.com/kenta/otolog/internal/proxy"
	"github.com/kenta/otolog/internal/ratelimit"
	"github.com/kenta/otolog/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ゲートキーパー
	Store      ratelimit.Store
	Tiers      ratelimit.Tiers
	Gatekeeper middleware.GatekeeperConfig

	// CORS
	CORSAllowedOrigin string

	// HTTPS配信時のみtrue（HSTSヘッダーの有効化に使用）
	SecureTransport bool

	// 認証・セッション
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	SessionStore   *session.CookieStore
	SessionManager *session.Manager

	// 転送先
	SpotifyProxy *proxy.SpotifyProxy
	Upstream     http.Handler

	// メトリクス
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → Gatekeeper
//
// ゲートキーパーの内部で認証パスのバイパス・レート制限・ティーザーゲート・
// ロケール解決が行われる。マッチしないパスはすべて上流のフロントエンドへ転送する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// nilの*metrics.Collectorを非nilインターフェースとして渡さないための変換
	var statusRec middleware.HTTPStatusRecorder
	var rateLimitRec middleware.RateLimitRecorder
	if deps.Metrics != nil {
		statusRec = deps.Metrics
		rateLimitRec = deps.Metrics
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), statusRec))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.SecureTransport))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewGatekeeperMiddleware(deps.Store, deps.Tiers, deps.Gatekeeper, rateLimitRec))

	// 運用エンドポイント（ゲートキーパーはバイパスする）
	r.Get("/health", NewHealthHandler())
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証フロー
	authHandler := NewAuthHandler(deps.AuthService, deps.SessionStore, deps.SessionManager, deps.AuthConfig)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/spotify/login", authHandler.Login)
		r.Get("/spotify/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Spotifyプロキシ
	spotifyHandler := NewSpotifyHandler(deps.SessionManager, deps.SpotifyProxy)
	r.Get("/api/spotify/*", spotifyHandler.Proxy)

	// その他のトラフィックはすべて上流のフロントエンドへ
	if deps.Upstream != nil {
		r.NotFound(deps.Upstream.ServeHTTP)
	}

	return r
}
