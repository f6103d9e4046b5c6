// Package parallel provides small helpers for concurrent operations.
package parallel

import "sync"

// ErrorCollector retains the first error reported by a group of goroutines.
// Later errors are discarded, so the caller sees the failure that started a
// collapse rather than its knock-on effects.
type ErrorCollector struct {
	once sync.Once
	err  error
}

// SetError records err if no error has been recorded yet. Nil errors are
// ignored. Safe for concurrent use.
func (c *ErrorCollector) SetError(err error) {
	if err != nil {
		c.once.Do(func() {
			c.err = err
		})
	}
}

// Err returns the first recorded error, or nil. Call after the goroutines
// feeding the collector have finished.
func (c *ErrorCollector) Err() error {
	return c.err
}

// Reset clears the collector for reuse. Not safe to call while goroutines
// are still reporting.
func (c *ErrorCollector) Reset() {
	c.once = sync.Once{}
	c.err = nil
}
