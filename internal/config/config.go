package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreKind はレート制限カウンタストアの種別を表す。
type StoreKind string

const (
	// StoreMemory はプロセス内メモリストアを示す。単一インスタンス運用向け。
	StoreMemory StoreKind = "memory"
	// StorePostgres はPostgreSQL共有ストアを示す。水平スケール運用向け。
	StorePostgres StoreKind = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// OAuth (Spotify)
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string

	// Session
	SessionSecret  string
	RefreshTimeout time.Duration

	// Rate Limit
	RateLimitAI            int
	RateLimitSpotify       int
	RateLimitGeneral       int
	RateLimitWindow        time.Duration
	RateLimitSweepInterval time.Duration
	RateLimitStore         StoreKind
	DatabaseURL            string // RateLimitStore=postgresの場合のみ必須

	// Gatekeeper
	TeaserMode        bool
	TeaserAllowedPath string
	DefaultLocale     string

	// Proxy
	UpstreamURL     string
	SpotifyAPIRate  float64 // 上流Spotify APIへの送信レート（req/sec）
	SpotifyAPIBurst int
	ProxyTimeout    time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SpotifyClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	if cfg.SpotifyClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}

	cfg.SpotifyClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	if cfg.SpotifyClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}

	cfg.SpotifyRedirectURL = os.Getenv("SPOTIFY_REDIRECT_URL")
	if cfg.SpotifyRedirectURL == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.UpstreamURL = os.Getenv("UPSTREAM_URL")
	if cfg.UpstreamURL == "" {
		missing = append(missing, "UPSTREAM_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RefreshTimeout = getEnvDuration("REFRESH_TIMEOUT", 10*time.Second)
	cfg.RateLimitAI = getEnvInt("RATE_LIMIT_AI", 10)
	cfg.RateLimitSpotify = getEnvInt("RATE_LIMIT_SPOTIFY", 60)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimitSweepInterval = getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute)
	cfg.TeaserMode = getEnvBool("TEASER_MODE", false)
	cfg.TeaserAllowedPath = getEnvString("TEASER_ALLOWED_PATH", "/teaser")
	cfg.DefaultLocale = getEnvString("DEFAULT_LOCALE", "en")
	cfg.SpotifyAPIRate = getEnvFloat("SPOTIFY_API_RATE", 10)
	cfg.SpotifyAPIBurst = getEnvInt("SPOTIFY_API_BURST", 20)
	cfg.ProxyTimeout = getEnvDuration("PROXY_TIMEOUT", 15*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// レート制限ストアの選択。postgresの場合のみDATABASE_URLが必須になる。
	store := StoreKind(getEnvString("RATE_LIMIT_STORE", string(StoreMemory)))
	if store != StoreMemory && store != StorePostgres {
		return nil, fmt.Errorf("invalid RATE_LIMIT_STORE: %q (allowed: memory, postgres)", store)
	}
	cfg.RateLimitStore = store

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.RateLimitStore == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when RATE_LIMIT_STORE=postgres")
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
