package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kenta/otolog/internal/ratelimit"
)

// RateLimitRecorder はレート制限拒否のメトリクス記録用インターフェース。
type RateLimitRecorder interface {
	RecordRateLimitRejection(tier string)
}

// checkRateLimit はリクエストをレート制限にかけ、通過可否を返す。
// 拒否時は429レスポンスを書き込み済みでfalseを返す。
// 通過時はX-RateLimit-*ヘッダーを付与してtrueを返す。
// ストア障害時はフェイルオープン（通過）とし、ログにのみ記録する。
func checkRateLimit(w http.ResponseWriter, r *http.Request, store ratelimit.Store, tiers ratelimit.Tiers, recorder RateLimitRecorder) bool {
	path := r.URL.Path
	cfg := tiers.ForPath(path)
	identifier := clientAddr(r) + ":" + path

	res, err := store.Check(r.Context(), identifier, cfg)
	if err != nil {
		// カウンタストアの障害で全トラフィックを止めない
		slog.Error("rate limit store failure, allowing request",
			slog.String("identifier", identifier),
			slog.String("tier", cfg.Name),
			slog.String("error", err.Error()),
		)
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))

	if res.Allowed {
		return true
	}

	// Retry-After: ウィンドウ終了までの秒数（切り上げ、最低1秒）
	retryAfterSec := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "Too many requests. Please try again later.",
	})

	slog.Warn("rate limit exceeded",
		slog.String("identifier", identifier),
		slog.String("tier", cfg.Name),
		slog.Time("reset_at", res.ResetAt),
	)

	if recorder != nil {
		recorder.RecordRateLimitRejection(cfg.Name)
	}

	return false
}

// clientAddr はレート制限キーに使うクライアントアドレスを導出する。
// X-Forwarded-Forの先頭アドレスを優先し、なければ直接接続のアドレスを使う。
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
