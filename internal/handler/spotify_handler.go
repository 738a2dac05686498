package handler

import (
	"net/http"
	"strings"

	"github.com/kenta/otolog/internal/proxy"
	"github.com/kenta/otolog/internal/session"
)

// SpotifyHandler は/api/spotify/*をSpotify Web APIに転送するハンドラー。
type SpotifyHandler struct {
	manager *session.Manager
	proxy   *proxy.SpotifyProxy
}

// NewSpotifyHandler はSpotifyHandlerを生成する。
func NewSpotifyHandler(manager *session.Manager, p *proxy.SpotifyProxy) *SpotifyHandler {
	return &SpotifyHandler{
		manager: manager,
		proxy:   p,
	}
}

// Proxy はセッションのアクセストークンを付与して上流に転送する。
// 期限切れセッションはGetSession内でリフレッシュされるため、
// ハンドラーは常に有効なトークンで転送できる。
// GET /api/spotify/*
func (h *SpotifyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.GetSession(w, r)
	if sess == nil {
		writeJSONError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	// /api/spotify/me/top/tracks → /v1/me/top/tracks
	apiPath := "/v1" + strings.TrimPrefix(r.URL.Path, "/api/spotify")

	h.proxy.Forward(w, r, sess.AccessToken, apiPath)
}
