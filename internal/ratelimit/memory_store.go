package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry はidentifierごとの固定ウィンドウカウンタ。
// resetAtを過ぎたエントリは物理削除前でも論理的に期限切れとして扱う。
type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore はプロセス内メモリのカウンタストア。
// 単一プロセス・ベストエフォートの制限に使用する。複数インスタンス間では
// カウンタが共有されないため、水平スケール時はPostgresStoreを使用すること。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	stopCh chan struct{}
}

// NewMemoryStore はMemoryStoreを生成し、期限切れエントリを定期削除する
// バックグラウンドスイープを開始する。Stopで停止する。
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := NewMemoryStoreWithClock(time.Now)
	go s.sweepLoop(sweepInterval)
	return s
}

// NewMemoryStoreWithClock は時刻取得関数を差し替えたMemoryStoreを生成する。
// バックグラウンドスイープは起動しない（テストではSweepを明示的に呼ぶ）。
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     now,
		stopCh:  make(chan struct{}),
	}
}

// Stop はスイープのバックグラウンドゴルーチンを停止する。
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

// Check はidentifierに対する現在ウィンドウのカウンタを進め、判定を返す。
// エントリが存在しないか期限切れの場合は新しいウィンドウを開始する。
// 上限到達後の拒否ではカウンタを進めず、現在ウィンドウの終了時刻を返す。
// エラーを返すことはない（Storeインターフェースを満たすためのシグネチャ）。
func (s *MemoryStore) Check(_ context.Context, identifier string, cfg Config) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// MaxRequestsが0以下の誤設定は常に拒否に縮退させる
	if cfg.MaxRequests <= 0 {
		return Result{Allowed: false, Remaining: 0, ResetAt: now.Add(cfg.Window)}, nil
	}

	e, ok := s.entries[identifier]
	if !ok || !e.resetAt.After(now) {
		resetAt := now.Add(cfg.Window)
		s.entries[identifier] = &entry{count: 1, resetAt: resetAt}
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: resetAt}, nil
	}

	if e.count >= cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}, nil
	}

	e.count++
	return Result{Allowed: true, Remaining: cfg.MaxRequests - e.count, ResetAt: e.resetAt}, nil
}

// Sweep はresetAtを過ぎたエントリをすべて削除し、削除件数を返す。
// 冪等であり、Check/挿入と並行して呼んでも安全。
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for identifier, e := range s.entries {
		if !e.resetAt.After(now) {
			delete(s.entries, identifier)
			removed++
		}
	}
	return removed
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweepLoop はバックグラウンドで期限切れエントリを定期的に削除する。
func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// コンパイル時チェック：MemoryStoreがStoreを満たすことを検証
var _ Store = (*MemoryStore)(nil)
