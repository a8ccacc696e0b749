package timeutil

import "time"

// Sleeper abstracts wall-clock sleeping so callers can inject a fake
// implementation in tests instead of actually blocking.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper sleeps on the real wall clock via time.Sleep.
type RealSleeper struct{}

func NewRealSleeper() RealSleeper {
	return RealSleeper{}
}

func (RealSleeper) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
