// Package proxy はSpotify Web APIへのリクエスト転送を提供する。
package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"golang.org/x/time/rate"
)

const (
	// defaultSpotifyAPIBase はSpotify Web APIのベースURL。
	defaultSpotifyAPIBase = "https://api.spotify.com"
	spotifyAPIHost        = "api.spotify.com"
)

// LatencyRecorder は上流呼び出しレイテンシのメトリクス記録用インターフェース。
type LatencyRecorder interface {
	RecordProxyLatency(duration time.Duration)
}

// SpotifyProxyConfig はSpotifyプロキシの設定。
type SpotifyProxyConfig struct {
	Timeout time.Duration // 上流呼び出しの最大待ち時間
	Rate    float64       // 上流への送信レート（req/sec）
	Burst   int           // 送信バーストサイズ

	// テスト用にオーバーライド可能。指定時はSSRF防止クライアントの代わりに
	// 素のhttp.Clientを使用する（httptestは許可ホスト外のため）。
	BaseURL    string
	HTTPClient *http.Client
}

// SpotifyProxy はSpotify Web APIへのGETリクエストを転送する。
//
// 上流クライアントはsafeurlで生成し、接続先をSpotify APIホストの443番のみに
// 固定する。転送先をパスから組み立てる構造のため、誤設定や細工されたパスで
// 内部ネットワークへ到達できないようにする。
// 送信側にはトークンバケットのスロットリングをかけ、1クライアントの
// バーストがSpotify側のアプリ全体のクォータを食い潰さないようにする。
type SpotifyProxy struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	timeout    time.Duration
	recorder   LatencyRecorder // nil可
}

// NewSpotifyProxy はSpotifyProxyを生成する。recorderはnilでもよい。
func NewSpotifyProxy(cfg SpotifyProxyConfig, recorder LatencyRecorder) *SpotifyProxy {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSpotifyAPIBase
	}

	client := cfg.HTTPClient
	if client == nil {
		config := safeurl.GetConfigBuilder().
			SetTimeout(cfg.Timeout).
			SetAllowedSchemes("https").
			SetAllowedPorts(443).
			SetAllowedHosts(spotifyAPIHost).
			Build()
		client = safeurl.Client(config).Client
	}

	return &SpotifyProxy{
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
		recorder:   recorder,
	}
}

// Forward はapiPath（"/v1/..."）へのGETリクエストをBearerトークン付きで転送し、
// 上流のステータスとボディをそのまま書き戻す。
// スロットリング待ちはリクエストコンテキストのキャンセルで中断される。
func (p *SpotifyProxy) Forward(w http.ResponseWriter, r *http.Request, accessToken, apiPath string) {
	ctx := r.Context()

	// 上流への送信レートを守る（待ち時間はクライアント側の負担になる）
	if err := p.limiter.Wait(ctx); err != nil {
		slog.Warn("spotify proxy throttle wait aborted",
			slog.String("path", apiPath),
			slog.String("error", err.Error()),
		)
		writeProxyError(w, http.StatusGatewayTimeout, "Upstream request timed out.")
		return
	}

	upstreamURL := p.baseURL + apiPath
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		slog.Error("failed to create upstream request",
			slog.String("url", upstreamURL),
			slog.String("error", err.Error()),
		)
		writeProxyError(w, http.StatusBadGateway, "Upstream request failed.")
		return
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Error("upstream request failed",
			slog.String("url", upstreamURL),
			slog.String("error", err.Error()),
		)
		writeProxyError(w, http.StatusBadGateway, "Upstream request failed.")
		return
	}
	defer resp.Body.Close()

	if p.recorder != nil {
		p.recorder.RecordProxyLatency(time.Since(start))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Warn("failed to copy upstream response body",
			slog.String("url", upstreamURL),
			slog.String("error", err.Error()),
		)
	}
}

// writeProxyError はプロキシ層のエラーをJSONで書き込む。
func writeProxyError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
