package session

import (
	"net/http"

	"github.com/kenta/otolog/internal/model"
)

// CookieName はセッションCookieの固定名。
const CookieName = "otolog_session"

// cookieMaxAge はセッションCookieの有効期間（30日）。
const cookieMaxAge = 30 * 24 * 60 * 60

// CookieStore はセッションを単一の署名付きHTTP Only Cookieとして読み書きする。
type CookieStore struct {
	secret []byte
	secure bool
	domain string
}

// NewCookieStore はCookieStoreを生成する。
// secureはローカル開発以外でtrueにすること（BASE_URLのスキームから導出される）。
func NewCookieStore(secret string, secure bool, domain string) *CookieStore {
	return &CookieStore{
		secret: []byte(secret),
		secure: secure,
		domain: domain,
	}
}

// Read はリクエストのCookieからセッションを読み取る。
// Cookieが存在しない場合は(nil, nil)を返す。復号・検証の失敗はエラーとして
// 返し、呼び出し元がログに記録したうえで未認証として扱う。
func (cs *CookieStore) Read(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	return decode(cookie.Value, cs.secret)
}

// Write はセッションを署名付きCookieとしてレスポンスに書き込む。
// 属性はHTTP Only、SameSite=Lax、30日のMaxAgeで固定する。
func (cs *CookieStore) Write(w http.ResponseWriter, s *model.Session) error {
	value, err := encode(s, cs.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   cs.domain,
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear はセッションCookieを削除する。
func (cs *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cs.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
