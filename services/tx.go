package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"parkingreserve/metrics"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// errConflict 樂觀寫入（compare-and-set）未命中，視為暫時性衝突
var errConflict = errors.New("optimistic write lost the race")

// TxRunner 執行單一原子交易，遇到暫時性衝突時以指數退避重試
type TxRunner struct {
	db          *gorm.DB
	maxAttempts int
	baseBackoff time.Duration
}

// NewTxRunner maxAttempts 最少 3 次
func NewTxRunner(db *gorm.DB, maxAttempts int, baseBackoff time.Duration) *TxRunner {
	if maxAttempts < 3 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 20 * time.Millisecond
	}
	return &TxRunner{db: db, maxAttempts: maxAttempts, baseBackoff: baseBackoff}
}

// DB 非交易讀取使用
func (r *TxRunner) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Run 在交易中執行 fn；業務錯誤直接回傳不重試，重試耗盡回傳 ErrTransactionConflict
func (r *TxRunner) Run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		start := time.Now()
		err := r.db.WithContext(ctx).Transaction(fn)
		metrics.Booking().ObserveTxDuration(op, time.Since(start))
		if err == nil {
			return nil
		}
		if IsBusinessError(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s aborted: %w", op, ctxErr)
		}
		if !isTransientConflict(err) {
			log.Printf("%s: store failure: %v", op, err)
			return &BookingError{Code: CodeStoreUnavailable, Message: op + " failed", Err: err}
		}

		lastErr = err
		metrics.Booking().ObserveTxRetry(op)
		if attempt == r.maxAttempts {
			break
		}
		wait := r.backoff(attempt)
		log.Printf("%s: transaction conflict (attempt %d/%d), retrying in %s: %v", op, attempt, r.maxAttempts, wait, err)
		if err := sleepContext(ctx, wait); err != nil {
			return fmt.Errorf("%s aborted: %w", op, err)
		}
	}
	return &BookingError{
		Code:    CodeTransactionConflict,
		Message: fmt.Sprintf("%s: transaction conflict after %d attempts", op, r.maxAttempts),
		Err:     lastErr,
	}
}

// backoff base * 2^(attempt-1) 再加上最多 base 的隨機抖動
func (r *TxRunner) backoff(attempt int) time.Duration {
	d := r.baseBackoff << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(r.baseBackoff)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransientConflict MySQL 死鎖(1213)/鎖等待逾時(1205)、SQLite busy/locked、CAS 未命中
func isTransientConflict(err error) bool {
	if errors.Is(err, errConflict) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// isDuplicateKey MySQL 1062 / SQLite UNIQUE constraint
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// outcomeOf 指標用結果標籤
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
