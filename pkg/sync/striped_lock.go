// Package sync holds keyed locking primitives.
package sync

import (
	"context"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock consistently maps a key space onto a fixed set of exclusive
// locks. Keys that share a stripe also share its lock.
type StripedLock struct {
	stripes  []chan struct{}
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	l := &StripedLock{
		stripes:  make([]chan struct{}, stripes),
		hashRing: newRing(stripes, hashEntriesPerLock),
	}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock blocks until the lock for key is held or ctx is done. The returned
// func releases the lock and must be called exactly once.
func (l *StripedLock) Lock(ctx context.Context, key []byte) (func(), error) {
	stripe := l.stripes[l.hashRing.shard(key)]

	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryLock acquires the lock for key only if it is free.
func (l *StripedLock) TryLock(key []byte) (func(), bool) {
	stripe := l.stripes[l.hashRing.shard(key)]

	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, true
	default:
		return nil, false
	}
}

// Stripe returns the index of the stripe key maps to.
func (l *StripedLock) Stripe(key []byte) int {
	return l.hashRing.shard(key)
}
