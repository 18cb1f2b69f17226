package ports

import "time"

type Clock interface {
	Now() time.Time
}

type Timer interface {
	Stop() bool
}

// TimerFactory schedules f to run once after d. Implementations may run f on
// another goroutine.
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

var (
	_ Clock        = SystemClock{}
	_ TimerFactory = SystemClock{}
)

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
