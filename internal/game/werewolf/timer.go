package werewolf

import "time"

// timer is the part of *time.Timer the session uses.
type timer interface {
	Stop() bool
}

// scheduler runs f after d on its own goroutine.
type scheduler interface {
	AfterFunc(d time.Duration, f func()) timer
	Now() time.Time
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) timer { return time.AfterFunc(d, f) }
func (wallClock) Now() time.Time                            { return time.Now() }
