package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewUpstreamProxy はダッシュボードのフロントエンドへのリバースプロキシを生成する。
// ゲートキーパーを通過した非API・非認証トラフィックの転送先になる。
func NewUpstreamProxy(upstreamURL string) (http.Handler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("upstream proxy error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSONError(w, http.StatusBadGateway, "Upstream unavailable.")
	}

	return rp, nil
}
