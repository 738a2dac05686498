// Package model はドメインモデルを定義する。
package model

// User はSpotifyプロフィールから取り出したユーザー情報を表す。
// ゲートウェイは内容を解釈せず、Cookieとレスポンスにそのまま受け渡す。
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// Session はブラウザセッションを表す。
// サーバー側には一切保持せず、署名付きHTTP Only Cookieのみを正とする。
// ExpiresAtはアクセストークンの有効期限（unix秒）で、
// トークン発行・リフレッシュ時にプロバイダーの申告値から再計算される。
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// IsExpired はアクセストークンが期限切れかを判定する。
// nowUnixには現在時刻のunix秒を渡す。
func (s *Session) IsExpired(nowUnix int64) bool {
	return s.ExpiresAt <= nowUnix
}
