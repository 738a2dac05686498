// Package session は署名付きCookieによるステートレスなセッション管理を提供する。
// セッションの唯一の置き場所はブラウザのCookieであり、サーバー側には
// リクエスト間で一切の状態を保持しない。
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kenta/otolog/internal/model"
)

// encode はセッションをbase64url(JSON) + "." + base64url(HMAC-SHA256)形式に
// 符号化する。Cookieは改ざん検知のみを目的に署名する（値の秘匿はしない）。
func encode(s *model.Session, secret []byte) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + sign(encoded, secret), nil
}

// decode はCookie値を検証・復号する。署名不一致・形式不正・JSON不正は
// すべてエラーとして返し、呼び出し元が未認証に縮退させる。
func decode(value string, secret []byte) (*model.Session, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, fmt.Errorf("malformed session cookie")
	}

	expected := sign(encoded, secret)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, fmt.Errorf("session cookie signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session payload: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &s, nil
}

// sign はペイロードのHMAC-SHA256署名をbase64urlで返す。
func sign(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
