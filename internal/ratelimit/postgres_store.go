package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore はPostgreSQLを使用した共有カウンタストア。
// 複数インスタンスでゲートウェイを動かす場合に、MemoryStoreの
// プロセスローカルな不正確さを避けるために使用する。
// 行ロック（SELECT ... FOR UPDATE）でカウンタ更新を直列化するため、
// MemoryStoreと同一のウィンドウ遷移セマンティクスになる。
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Check はidentifierに対する現在ウィンドウのカウンタを進め、判定を返す。
// DBエラー時は呼び出し元（ゲートキーパー）がフェイルオープンで処理する。
func (s *PostgresStore) Check(ctx context.Context, identifier string, cfg Config) (Result, error) {
	now := s.now()

	// MaxRequestsが0以下の誤設定は常に拒否に縮退させる
	if cfg.MaxRequests <= 0 {
		return Result{Allowed: false, Remaining: 0, ResetAt: now.Add(cfg.Window)}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	var resetAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT count, reset_at FROM rate_limit_entries
		 WHERE identifier = $1
		 FOR UPDATE`,
		identifier,
	).Scan(&count, &resetAt)

	switch {
	case err == sql.ErrNoRows:
		// 初回リクエスト: 新しいウィンドウを開始する
		resetAt = now.Add(cfg.Window)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rate_limit_entries (identifier, count, reset_at)
			 VALUES ($1, 1, $2)
			 ON CONFLICT (identifier) DO UPDATE SET count = 1, reset_at = $2`,
			identifier, resetAt,
		); err != nil {
			return Result{}, fmt.Errorf("failed to insert rate limit entry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return Result{}, fmt.Errorf("failed to commit: %w", err)
		}
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: resetAt}, nil

	case err != nil:
		return Result{}, fmt.Errorf("failed to read rate limit entry: %w", err)
	}

	if !resetAt.After(now) {
		// ウィンドウ期限切れ: カウンタをリセットして新しいウィンドウを開始する
		resetAt = now.Add(cfg.Window)
		if _, err := tx.ExecContext(ctx,
			`UPDATE rate_limit_entries SET count = 1, reset_at = $2 WHERE identifier = $1`,
			identifier, resetAt,
		); err != nil {
			return Result{}, fmt.Errorf("failed to reset rate limit entry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return Result{}, fmt.Errorf("failed to commit: %w", err)
		}
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: resetAt}, nil
	}

	if count >= cfg.MaxRequests {
		// 上限到達: カウンタは進めずに拒否する
		if err := tx.Commit(); err != nil {
			return Result{}, fmt.Errorf("failed to commit: %w", err)
		}
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	count++
	if _, err := tx.ExecContext(ctx,
		`UPDATE rate_limit_entries SET count = $2 WHERE identifier = $1`,
		identifier, count,
	); err != nil {
		return Result{}, fmt.Errorf("failed to increment rate limit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("failed to commit: %w", err)
	}
	return Result{Allowed: true, Remaining: cfg.MaxRequests - count, ResetAt: resetAt}, nil
}

// Sweep はreset_atを過ぎた行をすべて削除し、削除件数を返す。
// 定期実行ジョブから呼び出すことを想定している。
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_entries WHERE reset_at <= $1`,
		s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep rate limit entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return removed, nil
}

// コンパイル時チェック：PostgresStoreがStoreを満たすことを検証
var _ Store = (*PostgresStore)(nil)
