package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/metrics"
	"kasturi-ledger/pkg/apperror"
	"kasturi-ledger/pkg/logger"
)

// Broadcaster pushes committed ledger changes to live clients.
type Broadcaster interface {
	Publish(event string, payload interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(string, interface{}) {}

// Actor identifies who triggered a mutation. Empty ID means the system.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// withLock runs fn inside a transaction while holding the aggregate lock.
func withLock(ctx context.Context, locker lock.Locker, db *gorm.DB, key string, fn func(tx *gorm.DB) error) error {
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	return db.WithContext(ctx).Transaction(fn)
}

// notFound turns gorm's missing-row error into an apperror.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(format, args...)
	}
	return err
}

// rejected counts and logs a failed mutation before handing err back.
func rejected(operation string, err error, fields logger.Fields) error {
	kind := apperror.KindOf(err)
	metrics.LedgerRejections.WithLabelValues(operation, string(kind)).Inc()

	entry := logger.WithFields(fields).WithField("op", operation)
	if kind == apperror.KindInternal {
		entry.WithError(err).Error("ledger operation failed")
	} else {
		entry.WithField("kind", kind).Warn(err.Error())
	}
	return err
}
