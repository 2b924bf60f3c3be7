// Package lock serializes work per key. The chatbot takes a lock per
// conversation so concurrent turns of the same conversation read a
// consistent history and persist their user/assistant pairs in order.
//
// Local coordinates goroutines of one process; Redis coordinates replicas
// through a Redlock mutex (redsync).
package lock

import (
	"context"
	"sync"
)

// Unlock releases a lock. It is safe to call more than once.
type Unlock func()

// Locker acquires exclusive locks by key. Lock blocks until the lock is
// held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process keyed mutex. Entries are reference counted and
// removed once no goroutine holds or waits on them, so memory stays bounded
// by the number of keys in use.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{} // capacity 1; a token in the channel means "held"
	refs int
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// size reports tracked keys (tests).
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Noop never blocks. It is used when serialization is disabled.
type Noop struct{}

// Lock implements Locker.
func (Noop) Lock(ctx context.Context, _ string) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = Noop{}
)
