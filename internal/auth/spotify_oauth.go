// Package auth はSpotify OAuth 2.0フローとトークンリフレッシュを提供する。
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kenta/otolog/internal/model"
)

const (
	defaultSpotifyAuthURL    = "https://accounts.spotify.com/authorize"
	defaultSpotifyTokenURL   = "https://accounts.spotify.com/api/token"
	defaultSpotifyProfileURL = "https://api.spotify.com/v1/me"

	// ダッシュボードの集計・ムード分析に必要なスコープ
	spotifyScopes = "user-read-email user-read-private user-top-read user-read-recently-played"
)

// SpotifyOAuthConfig はSpotify OAuthプロバイダーの設定。
type SpotifyOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// SpotifyOAuthProvider はSpotify OAuth 2.0による認証とリフレッシュを提供する。
type SpotifyOAuthProvider struct {
	config     SpotifyOAuthConfig
	httpClient *http.Client
}

// NewSpotifyOAuthProvider はSpotifyOAuthProviderを生成する。
func NewSpotifyOAuthProvider(config SpotifyOAuthConfig) *SpotifyOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultSpotifyAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultSpotifyTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultSpotifyProfileURL
	}
	return &SpotifyOAuthProvider{
		config:     config,
		httpClient: http.DefaultClient,
	}
}

// Token はSpotifyのトークンエンドポイントから得たトークンの組。
// RefreshTokenはリフレッシュ応答では省略されることがある
// （その場合は既存のリフレッシュトークンを使い続ける）。
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// GetLoginURL はSpotify OAuthの認可URLを生成する。
func (p *SpotifyOAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {spotifyScopes},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// ExchangeCode は認可コードをトークンに交換し、ユーザープロフィールを取得する。
func (p *SpotifyOAuthProvider) ExchangeCode(ctx context.Context, code string) (*Token, *model.User, error) {
	// 1. 認可コードをトークンに交換
	token, err := p.requestToken(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {p.config.RedirectURL},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	// 2. アクセストークンでプロフィールを取得
	user, err := p.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	return token, user, nil
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
// grant_type=refresh_tokenのフォームPOSTで、クライアント認証はBasic認証。
func (p *SpotifyOAuthProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	token, err := p.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return token, nil
}

// requestToken はトークンエンドポイントへのフォームPOSTを実行する。
// Spotifyはclient_id:client_secretのBasic認証を要求する。
func (p *SpotifyOAuthProvider) requestToken(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+p.basicCredentials())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &token, nil
}

// spotifyProfile はSpotifyの/v1/meエンドポイントのレスポンス。
type spotifyProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// fetchProfile はアクセストークンでSpotifyのユーザープロフィールを取得する。
func (p *SpotifyOAuthProvider) fetchProfile(ctx context.Context, accessToken string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile spotifyProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("empty user id in profile response")
	}

	user := &model.User{
		ID:    profile.ID,
		Name:  profile.DisplayName,
		Email: profile.Email,
	}
	if len(profile.Images) > 0 {
		user.Image = profile.Images[0].URL
	}

	return user, nil
}

// basicCredentials はBasic認証用のclient_id:client_secretを符号化する。
func (p *SpotifyOAuthProvider) basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
}
