package leaflink

import "time"

type Clock interface {
	Now() Timestamp
}

type SystemClock struct{}

func (SystemClock) Now() Timestamp {
	return Timestamp(time.Now().UnixNano())
}

// FixedClock always reports the same instant.
type FixedClock Timestamp

func (c FixedClock) Now() Timestamp {
	return Timestamp(c)
}
