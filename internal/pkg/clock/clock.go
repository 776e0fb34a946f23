package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock in UTC.
type TimeClocker struct{}

func New() *TimeClocker {
	return &TimeClocker{}
}

func (*TimeClocker) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant. Advance moves it forward.
type Fixed struct {
	At time.Time
}

func (f *Fixed) Now() time.Time {
	return f.At
}

func (f *Fixed) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}
