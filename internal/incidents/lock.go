package incidents

import (
	"context"
	"fmt"

	"github.com/yuno/sentinel/internal/errs"
)

// detectorLockKey is the well-known advisory-lock key spec.md §5 calls for:
// "two Detector instances must not run against the same Incident Store".
// Any fixed int64 works; the value itself carries no meaning.
const detectorLockKey = 725_190_001

// AcquireDetectorLock attempts to take the session-scoped Postgres advisory
// lock that guarantees single-instance evaluation. Advisory locks are tied
// to the connection that took them, so this checks out a dedicated
// connection from the pool and holds it for the Store's lifetime rather
// than running through the pool's round-robin Exec. It returns
// acquired=false (not an error) if another Detector already holds it — the
// caller should treat that as fatal-at-startup, not retriable.
func (s *Store) AcquireDetectorLock(ctx context.Context) (acquired bool, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, errs.Transient(fmt.Errorf("acquire lock connection: %w", err))
	}

	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, detectorLockKey).Scan(&acquired); err != nil {
		conn.Release()
		return false, errs.Transient(fmt.Errorf("acquire detector lock: %w", err))
	}
	if !acquired {
		conn.Release()
		return false, nil
	}

	s.lockConn = conn
	return true, nil
}

// ReleaseDetectorLock releases the advisory lock and returns the dedicated
// connection to the pool, best-effort, on shutdown.
func (s *Store) ReleaseDetectorLock(ctx context.Context) error {
	if s.lockConn == nil {
		return nil
	}
	_, err := s.lockConn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, detectorLockKey)
	s.lockConn.Release()
	s.lockConn = nil
	return err
}
