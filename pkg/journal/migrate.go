package journal

import (
	"context"
	"database/sql"
	"fmt"
	"hash/crc32"

	"gorm.io/gorm"
)

// migrationLockName identifies the journal schema lock on shared databases.
const migrationLockName = "ipqc-journal-migration"

// migrationLocker serializes schema migrations when several servers share
// one journal database.
type migrationLocker interface {
	withLock(ctx context.Context, fn func() error) error
}

// lockerFor picks a lock for the database dialect. PostgreSQL uses an
// advisory lock and MySQL a named lock; SQLite is local to one process and
// needs none.
func lockerFor(db *gorm.DB) migrationLocker {
	switch db.Dialector.Name() {
	case DBTypePostgres:
		return &sessionLock{
			db:      db,
			acquire: "SELECT pg_advisory_lock(?)",
			release: "SELECT pg_advisory_unlock(?)",
			args:    []any{int64(crc32.ChecksumIEEE([]byte(migrationLockName)))},
		}
	case DBTypeMySQL:
		return &sessionLock{
			db:      db,
			acquire: "SELECT GET_LOCK(?, 60)",
			release: "SELECT RELEASE_LOCK(?)",
			args:    []any{migrationLockName},
			granted: true,
		}
	default:
		return noopLock{}
	}
}

type noopLock struct{}

func (noopLock) withLock(_ context.Context, fn func() error) error {
	return fn()
}

// sessionLock holds a connection-scoped database lock. Both databases tie
// the lock to the session that took it, so acquire and release run on one
// pinned connection. When granted is set the acquire statement reports the
// outcome as a row: 1 when the lock was taken, 0 on timeout, NULL on error.
type sessionLock struct {
	db      *gorm.DB
	acquire string
	release string
	args    []any
	granted bool
}

func (l *sessionLock) withLock(ctx context.Context, fn func() error) error {
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := l.take(conn); err != nil {
			return err
		}
		defer func() {
			_ = conn.Exec(l.release, l.args...).Error
		}()
		return fn()
	})
}

func (l *sessionLock) take(conn *gorm.DB) error {
	if !l.granted {
		if err := conn.Exec(l.acquire, l.args...).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		return nil
	}
	var got sql.NullInt64
	if err := conn.Raw(l.acquire, l.args...).Scan(&got).Error; err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !got.Valid || got.Int64 != 1 {
		return fmt.Errorf("acquire migration lock %q: not granted", migrationLockName)
	}
	return nil
}

// Migrate creates or updates the journal tables under the migration lock.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return lockerFor(db).withLock(ctx, NewStore(db).AutoMigrate)
}
