// Package ratelimit は固定ウィンドウ方式のレート制限を提供する。
// ウィンドウ境界をまたぐ短時間に最大2倍のリクエストを許す固定ウィンドウの
// 弱点は把握したうえで採用している。AI APIのコスト見積もりがこの挙動を
// 前提に調整されているため、スライディングウィンドウへは変更しないこと。
package ratelimit

import (
	"context"
	"time"
)

// Config はレート制限ティアの設定を保持する。イミュータブルとして扱う。
type Config struct {
	Name        string        // ティア名（ログ・メトリクス用）
	MaxRequests int           // ウィンドウあたりの許可リクエスト数
	Window      time.Duration // ウィンドウ幅
}

// Result はレート制限判定の結果を表す。
type Result struct {
	Allowed   bool      // このリクエストを通すか
	Remaining int       // 現在ウィンドウの残りリクエスト数
	ResetAt   time.Time // 現在ウィンドウの終了時刻
}

// Store はカウンタストアのインターフェース。
// MemoryStoreは単一プロセス向け、PostgresStoreは複数インスタンス共有向け。
type Store interface {
	// Check はidentifierに対する現在ウィンドウのカウンタを進め、判定を返す。
	// MaxRequestsが0以下の設定は常に拒否として扱う（クラッシュさせない）。
	Check(ctx context.Context, identifier string, cfg Config) (Result, error)
}

// Tiers は3種類の標準ティアを保持する。
type Tiers struct {
	AI      Config // AIコスト感応エンドポイント向け
	Spotify Config // Spotifyプロキシ向け
	General Config // その他のAPI向け
}

// DefaultTiers はデフォルトのティア構成を返す。
// 要件: AI 10 req/60s、Spotifyプロキシ 60 req/60s、一般 120 req/60s
func DefaultTiers() Tiers {
	return Tiers{
		AI:      Config{Name: "ai", MaxRequests: 10, Window: time.Minute},
		Spotify: Config{Name: "spotify", MaxRequests: 60, Window: time.Minute},
		General: Config{Name: "general", MaxRequests: 120, Window: time.Minute},
	}
}
