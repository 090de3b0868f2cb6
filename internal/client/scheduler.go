package client

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running and reports whether it was still
	// pending.
	Stop() bool
}

// Scheduler runs f once after d. SearchClient uses it to debounce input.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
