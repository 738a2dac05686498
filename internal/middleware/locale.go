package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// LocaleCookieName はロケール設定Cookieの固定名。
// クライアント側でも読むためHTTP Onlyにはしない。
const LocaleCookieName = "otolog_locale"

// localeCookieMaxAge はロケールCookieの有効期間（365日）。
const localeCookieMaxAge = 365 * 24 * 60 * 60

// supportedLocales はダッシュボードが対応するロケールタグ。
var supportedLocales = []string{"en", "ja"}

// resolveLocale はリクエストのロケールを解決し、必要に応じてCookieに永続化する。
// 優先順位: 有効なロケールCookie → Accept-Languageヘッダー → デフォルト値。
// すでに有効なCookieがある場合は書き込みを行わない。
// ヘッダーやCookieの形式不正はすべてデフォルトに縮退し、エラーにはしない。
func resolveLocale(w http.ResponseWriter, r *http.Request, defaultLocale string) string {
	if cookie, err := r.Cookie(LocaleCookieName); err == nil && isSupportedLocale(cookie.Value) {
		return cookie.Value
	}

	locale := matchAcceptLanguage(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = defaultLocale
	}
	if !isSupportedLocale(locale) {
		locale = supportedLocales[0]
	}

	http.SetCookie(w, &http.Cookie{
		Name:     LocaleCookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   localeCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})

	return locale
}

// langTag はAccept-Languageヘッダーの1エントリ。
type langTag struct {
	tag     string
	quality float64
}

// parseAcceptLanguage はAccept-Languageヘッダーを重み降順のタグ列に解析する。
// 形式: カンマ区切りの "code;q=value"。qが省略された場合は1.0とする。
// 不正なq値は無視する（エントリ自体は重み1.0で残す）。
func parseAcceptLanguage(header string) []langTag {
	if header == "" {
		return nil
	}

	var tags []langTag
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		tag := strings.ToLower(strings.TrimSpace(fields[0]))
		if tag == "" {
			continue
		}

		quality := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if q, err := strconv.ParseFloat(v, 64); err == nil {
					quality = q
				}
			}
		}

		tags = append(tags, langTag{tag: tag, quality: quality})
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].quality > tags[j].quality
	})

	return tags
}

// matchAcceptLanguage はAccept-Languageヘッダーから対応ロケールを選ぶ。
// 重み順にタグを走査し、対応ロケールと完全一致またはプレフィックス一致
// （"en-US" → "en"）した最初のものを返す。一致がなければ空文字を返す。
func matchAcceptLanguage(header string) string {
	for _, t := range parseAcceptLanguage(header) {
		for _, locale := range supportedLocales {
			if t.tag == locale || strings.HasPrefix(t.tag, locale+"-") {
				return locale
			}
		}
	}
	return ""
}

// isSupportedLocale はロケールタグが対応リストに含まれるかを判定する。
func isSupportedLocale(locale string) bool {
	for _, l := range supportedLocales {
		if locale == l {
			return true
		}
	}
	return false
}
