package middleware

import "net/http"

// NewSecurityHeadersMiddleware はゲートウェイを通過する全レスポンス
// （フロントエンドへのプロキシ転送分を含む）にセキュリティ関連ヘッダーを付与する
// ミドルウェアを返す。
// hstsはHTTPS配信時（BASE_URLがhttpsの場合）のみ有効にすること。
// ローカル開発のhttp配信でHSTSを返すとブラウザがキャッシュして以後の
// http接続を拒否してしまう。
func NewSecurityHeadersMiddleware(hsts bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
