package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kenta/otolog/internal/auth"
	"github.com/kenta/otolog/internal/model"
	"github.com/kenta/otolog/internal/timeout"
)

// Refresher はリフレッシュトークンを新しいトークンに交換するインターフェース。
// auth.SpotifyOAuthProviderの部分集合として定義する。
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.Token, error)
}

// RefreshRecorder はリフレッシュ結果のメトリクス記録用インターフェース。
type RefreshRecorder interface {
	RecordSessionRefresh(success bool)
}

// Manager はCookieのみを正とするセッションの取得とリフレッシュを行う。
//
// 各リクエストが自分のCookieから独立にセッションを導出するため、期限切れを
// 同時に観測した複数リクエストはそれぞれ独立にリフレッシュを実行する。
// プロバイダー側のトークンローテーション次第で負けた側のトークンが後に
// 拒否されうるが、これはステートレス設計で受け入れているレースである。
type Manager struct {
	store          *CookieStore
	refresher      Refresher
	refreshTimeout time.Duration
	recorder       RefreshRecorder // nil可
	now            func() time.Time
}

// NewManager はManagerを生成する。recorderはnilでもよい。
func NewManager(store *CookieStore, refresher Refresher, refreshTimeout time.Duration, recorder RefreshRecorder) *Manager {
	return &Manager{
		store:          store,
		refresher:      refresher,
		refreshTimeout: refreshTimeout,
		recorder:       recorder,
		now:            time.Now,
	}
}

// GetSession は現在のリクエストの有効なセッションを返す。
//
//  1. Cookieが存在しない、または復号できない場合はnil（未認証）。
//  2. アクセストークンが未失効ならそのまま返す（ネットワーク呼び出しなし）。
//  3. 失効していればリフレッシュを1回だけ試行する。成功すればCookieを
//     上書きして新しいセッションを返し、失敗すればCookieを削除してnilを
//     返す（ハードログアウト。リトライやバックオフはしない）。
//
// いずれの失敗も呼び出し元へはnilに縮退し、詳細はサーバーログにのみ残す。
func (m *Manager) GetSession(w http.ResponseWriter, r *http.Request) *model.Session {
	sess, err := m.store.Read(r)
	if err != nil {
		slog.Warn("failed to parse session cookie",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if sess == nil || sess.AccessToken == "" {
		return nil
	}

	now := m.now()
	if !sess.IsExpired(now.Unix()) {
		return sess
	}

	// 期限切れ: リフレッシュトークンで新しいアクセストークンを取得する
	var token *auth.Token
	err = timeout.Do(r.Context(), m.refreshTimeout, func(ctx context.Context) error {
		var refreshErr error
		token, refreshErr = m.refresher.Refresh(ctx, sess.RefreshToken)
		return refreshErr
	})
	if err != nil {
		slog.Warn("session refresh failed, signing out",
			slog.String("user_id", sess.User.ID),
			slog.String("error", err.Error()),
		)
		if m.recorder != nil {
			m.recorder.RecordSessionRefresh(false)
		}
		m.store.Clear(w)
		return nil
	}

	// プロバイダーがリフレッシュトークンを省略した場合は既存の値を引き継ぐ
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = sess.RefreshToken
	}

	newSess := &model.Session{
		User:         sess.User,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Unix() + int64(token.ExpiresIn),
	}

	if err := m.store.Write(w, newSess); err != nil {
		slog.Error("failed to write refreshed session cookie",
			slog.String("user_id", sess.User.ID),
			slog.String("error", err.Error()),
		)
	}

	if m.recorder != nil {
		m.recorder.RecordSessionRefresh(true)
	}

	slog.Info("session refreshed",
		slog.String("user_id", sess.User.ID),
		slog.Int64("expires_at", newSess.ExpiresAt),
	)

	return newSess
}
