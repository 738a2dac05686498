// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
	"strings"

	"github.com/kenta/otolog/internal/ratelimit"
)

// GatekeeperConfig はゲートキーパーの設定。
type GatekeeperConfig struct {
	TeaserMode        bool   // 有効時はランディングと許可パス以外を遮断する
	TeaserAllowedPath string // ティーザーモード中も配信を許可する1パス
	DefaultLocale     string // ロケール解決の最終フォールバック
}

// NewGatekeeperMiddleware は全ルートハンドラーの前段で実行される
// リクエスト判定パイプラインを返す。判定は次の順序で行う。
//
//  1. 静的アセット（"."を含むパス）と内部パス（"/_"配下、/health、/metrics）は素通し。
//  2. 認証フロー（/auth/配下）はレート制限もティーザーゲートも適用しない。
//     認証前のリクエストを枯渇させてはならないため。
//  3. APIパス: クライアントアドレス＋パスでレート制限を判定する。
//  4. 非APIパス: ティーザーゲートを適用し、通過したらロケールを解決・永続化する。
//
// ストア障害やヘッダーの形式不正で全トラフィックを止めることはない。
// 判定不能はすべて安全側（通過・デフォルト値）に倒す。
func NewGatekeeperMiddleware(store ratelimit.Store, tiers ratelimit.Tiers, cfg GatekeeperConfig, recorder RateLimitRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			// 1. 静的アセット・内部パスの素通し
			if isBypassPath(path) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. 認証フローの素通し
			if strings.HasPrefix(path, "/auth/") {
				next.ServeHTTP(w, r)
				return
			}

			// 3. APIパス: レート制限
			if strings.HasPrefix(path, "/api/") {
				if !checkRateLimit(w, r, store, tiers, recorder) {
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 4. 非APIパス: ティーザーゲート
			if cfg.TeaserMode && path != "/" && path != cfg.TeaserAllowedPath {
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}

			// ロケール解決と永続化
			resolveLocale(w, r, cfg.DefaultLocale)

			next.ServeHTTP(w, r)
		})
	}
}

// isBypassPath はゲート判定を完全にスキップするパスかを判定する。
// 静的アセット（拡張子を持つパス）、フレームワーク内部プレフィックス、
// 運用エンドポイントが対象。
func isBypassPath(path string) bool {
	if strings.Contains(path, ".") {
		return true
	}
	if strings.HasPrefix(path, "/_") {
		return true
	}
	return path == "/health" || path == "/metrics"
}
