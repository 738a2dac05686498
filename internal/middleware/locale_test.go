package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveLocale_ValidCookieWinsWithoutRewrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LocaleCookieName, Value: "ja"})
	req.Header.Set("Accept-Language", "en")
	w := httptest.NewRecorder()

	got := resolveLocale(w, req, "en")
	if got != "ja" {
		t.Errorf("locale = %q, want ja (cookie wins over header)", got)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("valid cookie should not be rewritten")
	}
}

func TestResolveLocale_InvalidCookieFallsBackToHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LocaleCookieName, Value: "fr"})
	req.Header.Set("Accept-Language", "ja")
	w := httptest.NewRecorder()

	got := resolveLocale(w, req, "en")
	if got != "ja" {
		t.Errorf("locale = %q, want ja", got)
	}

	// 不正なCookieは有効値で上書きされる
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "ja" {
		t.Errorf("cookies = %v, want one ja cookie", cookies)
	}
}

func TestResolveLocale_HeaderMissingUsesDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	got := resolveLocale(w, req, "ja")
	if got != "ja" {
		t.Errorf("locale = %q, want default ja", got)
	}
}

func TestResolveLocale_InvalidDefaultFallsBackToFirstSupported(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	got := resolveLocale(w, req, "xx")
	if got != "en" {
		t.Errorf("locale = %q, want en (first supported)", got)
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []langTag
	}{
		{
			"空ヘッダー",
			"",
			nil,
		},
		{
			"単一タグ",
			"ja",
			[]langTag{{tag: "ja", quality: 1.0}},
		},
		{
			"重み付き複数タグは降順に並ぶ",
			"en;q=0.5, ja;q=0.9, fr;q=0.7",
			[]langTag{{tag: "ja", quality: 0.9}, {tag: "fr", quality: 0.7}, {tag: "en", quality: 0.5}},
		},
		{
			"q省略は1.0として先頭に来る",
			"en;q=0.5, ja",
			[]langTag{{tag: "ja", quality: 1.0}, {tag: "en", quality: 0.5}},
		},
		{
			"不正なq値はエントリを重み1.0で残す",
			"ja;q=broken, en;q=0.5",
			[]langTag{{tag: "ja", quality: 1.0}, {tag: "en", quality: 0.5}},
		},
		{
			"大文字と空白は正規化される",
			" EN-us ;q=0.8 , JA ",
			[]langTag{{tag: "ja", quality: 1.0}, {tag: "en-us", quality: 0.8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAcceptLanguage(tt.header)
			if len(got) != len(tt.want) {
				t.Fatalf("tag count = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMatchAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"完全一致", "ja", "ja"},
		{"地域サブタグはプレフィックス一致", "en-US,en;q=0.9", "en"},
		{"重み順で最初の対応ロケール", "fr;q=0.9, ja;q=0.8, en;q=0.7", "ja"},
		{"対応外のみは空文字", "fr, de;q=0.8", ""},
		{"空ヘッダーは空文字", "", ""},
		{"日本語の地域サブタグ", "ja-JP,ja;q=0.9,en-US;q=0.8", "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchAcceptLanguage(tt.header); got != tt.want {
				t.Errorf("matchAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestIsSupportedLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   bool
	}{
		{"en", true},
		{"ja", true},
		{"fr", false},
		{"", false},
		{"EN", false}, // 大文字は不一致（Cookieは小文字で書かれる）
	}

	for _, tt := range tests {
		if got := isSupportedLocale(tt.locale); got != tt.want {
			t.Errorf("isSupportedLocale(%q) = %v, want %v", tt.locale, got, tt.want)
		}
	}
}
