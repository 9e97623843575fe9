package agent

import "sync"

// UserLocks hands out one mutex per user id so that concurrent conversations
// of the same user take turns on the shared ledger.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the user's mutex is held and returns its unlock func.
func (u *UserLocks) Lock(userID string) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l.Unlock
}
