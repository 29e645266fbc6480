package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	"factorsync/internal/domain"
	"factorsync/internal/port"
)

type fileRunLock struct {
	mu   sync.Mutex
	path string
}

// NewRunLock returns a RunLock shared by every process using the database at
// dbPath, held as an OS lock on dbPath+".lock". The OS drops the lock when a
// holder exits, so a crashed run never blocks the next one. An in-memory
// database is private to its process and gets a process-local lock.
func NewRunLock(dbPath string) port.RunLock {
	l := &fileRunLock{}
	if dbPath != "" && dbPath != ":memory:" {
		l.path = dbPath + ".lock"
	}
	return l
}

func (l *fileRunLock) TryAcquire(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	if l.path == "" {
		var once sync.Once
		return func() { once.Do(l.mu.Unlock) }, nil
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("fileRunLock: locking %s: %w", l.path, err)
	}
	if !locked {
		l.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fl.Unlock()
			l.mu.Unlock()
		})
	}, nil
}
