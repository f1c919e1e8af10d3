package service

import "time"

var ErrServiceClosed = errServiceClosed

// WithMaxDegradedDuration sets how long Run waits for the second sub-service
// to finish before giving up.
func WithMaxDegradedDuration(d time.Duration) Option {
	return func(o *options) {
		o.maxDegradedDuration = d
	}
}
