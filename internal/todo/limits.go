package todo

import (
	"context"
	"sync"
)

// MaxIncompletePerUser is the number of incomplete todos a single user may
// hold at once.
const MaxIncompletePerUser = 5

type incompleteCounter interface {
	CountIncomplete(ctx context.Context, userID int64) (int, error)
}

// Limiter enforces the incomplete-todo cap. Callers hold Lock(userID) around
// the check and the write so that requests for one user cannot interleave.
type Limiter struct {
	counter incompleteCounter
	limit   int
	locks   *userLocks
}

func NewLimiter(counter incompleteCounter, limit int) *Limiter {
	return &Limiter{
		counter: counter,
		limit:   limit,
		locks:   newUserLocks(),
	}
}

func (l *Limiter) Limit() int {
	return l.limit
}

// CanCreateIncomplete reports whether userID may gain one more incomplete todo
// through a create.
func (l *Limiter) CanCreateIncomplete(ctx context.Context, userID int64) (bool, error) {
	return l.belowLimit(ctx, userID)
}

// CanMarkIncomplete reports whether a completed todo of userID may be
// reopened. The record being reopened is completed at check time, so it is
// not part of the count.
func (l *Limiter) CanMarkIncomplete(ctx context.Context, userID int64) (bool, error) {
	return l.belowLimit(ctx, userID)
}

func (l *Limiter) Incomplete(ctx context.Context, userID int64) (int, error) {
	return l.counter.CountIncomplete(ctx, userID)
}

func (l *Limiter) belowLimit(ctx context.Context, userID int64) (bool, error) {
	count, err := l.counter.CountIncomplete(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < l.limit, nil
}

// Lock serializes check-then-write sequences for one user within this process.
func (l *Limiter) Lock(userID int64) (unlock func()) {
	return l.locks.lock(userID)
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (u *userLocks) lock(userID int64) func() {
	u.mu.Lock()
	entry, ok := u.locks[userID]
	if !ok {
		entry = &userLock{}
		u.locks[userID] = entry
	}
	entry.refs++
	u.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		u.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}
