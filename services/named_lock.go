package services

import (
	"context"
	"log"
	"strings"

	"gorm.io/gorm"
)

// withNamedLock runs fn while holding the MySQL advisory lock lockName. Both
// GET_LOCK and RELEASE_LOCK run on one pinned connection since MySQL ties the
// lock to the session. It returns errLocked when another session holds it.
func withNamedLock(ctx context.Context, db *gorm.DB, lockName string, errLocked error, fn func(ctx context.Context) error) error {
	if db == nil || strings.TrimSpace(lockName) == "" {
		return fn(ctx)
	}

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var ok int
		if err := conn.Raw("SELECT GET_LOCK(?, 0)", lockName).Scan(&ok).Error; err != nil {
			return err
		}
		if ok != 1 {
			return errLocked
		}
		defer func() {
			var released int
			if err := conn.WithContext(detachedContext(ctx)).Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
				log.Printf("failed to release lock %s: %v", lockName, err)
			}
		}()
		return fn(ctx)
	})
}

// detachedContext keeps ctx's values but not its deadline or cancellation.
// Work that must finish once started, like recording renamed files or
// releasing a lock, runs on it.
func detachedContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
