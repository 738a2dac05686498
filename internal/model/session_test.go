package model

import (
	"encoding/json"
	"testing"
)

func TestSession_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		nowUnix   int64
		want      bool
	}{
		{"未来の期限は未失効", 1000, 999, false},
		{"ちょうど期限は失効", 1000, 1000, true},
		{"過去の期限は失効", 1000, 1001, true},
		{"ゼロ値は常に失効", 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(tt.nowUnix); got != tt.want {
				t.Errorf("IsExpired(%d) = %v, want %v", tt.nowUnix, got, tt.want)
			}
		})
	}
}

// CookieペイロードのJSONキーが固定の形であることを検証
func TestSession_JSONShape(t *testing.T) {
	s := Session{
		User:         User{ID: "u1", Name: "Kenta", Email: "kenta@example.com"},
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    123,
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"user", "accessToken", "refreshToken", "expiresAt"} {
		if _, ok := m[key]; !ok {
			t.Errorf("JSON key %q is missing", key)
		}
	}

	user := m["user"].(map[string]interface{})
	if user["id"] != "u1" {
		t.Errorf("user.id = %v, want u1", user["id"])
	}
	// 画像なしのユーザーではimageキーが省略される
	if _, ok := user["image"]; ok {
		t.Error("empty image should be omitted")
	}
}
