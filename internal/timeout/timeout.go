// Package timeout は外部呼び出しに対する汎用タイムアウトラッパーを提供する。
package timeout

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout は操作が期限内に完了しなかったことを示す。
// 呼び出し元は通常の回復可能な失敗（フェッチ失敗相当）として扱うこと。
var ErrTimeout = errors.New("operation timed out")

// Do はopを期限付きで実行し、期限とレースさせる。
// 期限が先に到来した場合はErrTimeoutを返す。opには期限付きのコンテキストが
// 渡されるため、協調的なキャンセルにも対応する。opが先に完了した場合は
// その結果をそのまま返す（context.DeadlineExceededはErrTimeoutに正規化する）。
// 期限後もopのゴルーチンは完了まで走り続けるが、結果は破棄される。
func Do(ctx context.Context, d time.Duration, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
