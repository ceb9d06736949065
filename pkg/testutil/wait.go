package testutil

import (
	"time"

	"github.com/pkg/errors"
)

// WaitFor polls condition every interval until it holds or timeout elapses.
// The condition is always checked at least once.
func WaitFor(timeout, interval time.Duration, condition func() bool) error {
	if timeout < interval {
		return errors.Errorf("timeout %v is shorter than interval %v", timeout, interval)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !condition() {
		select {
		case <-deadline.C:
			if condition() {
				return nil
			}
			return errors.Errorf("condition not met within %v", timeout)
		case <-ticker.C:
		}
	}
	return nil
}
