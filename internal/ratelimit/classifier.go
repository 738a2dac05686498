package ratelimit

import "strings"

const (
	aiPathPrefix         = "/api/ai/"
	tourStatusPathPrefix = "/api/tour-status"
	spotifyPathPrefix    = "/api/spotify/"
)

// ForPath はリクエストパスに適用するティアを返す。
// AIエンドポイントとツアー照会はコスト感応ティア、Spotifyプロキシは
// 専用ティア、それ以外はすべて一般ティアに分類する。純粋関数。
func (t Tiers) ForPath(path string) Config {
	switch {
	case strings.HasPrefix(path, aiPathPrefix), strings.HasPrefix(path, tourStatusPathPrefix):
		return t.AI
	case strings.HasPrefix(path, spotifyPathPrefix):
		return t.Spotify
	default:
		return t.General
	}
}
