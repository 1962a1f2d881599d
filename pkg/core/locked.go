package core

import "sync"

// Locked serializes access to a Database so that several front ends (HTTP,
// TCP) can share one instance.
type Locked struct {
	mu sync.Mutex
	db *Database
}

func NewLocked(db *Database) *Locked {
	return &Locked{db: db}
}

func (l *Locked) ExecuteString(text string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.ExecuteString(text)
}

// Do runs fn with exclusive access to the database. fn must not keep the
// pointer after it returns.
func (l *Locked) Do(fn func(db *Database)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.db)
}

func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
