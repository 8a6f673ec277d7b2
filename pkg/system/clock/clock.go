// Package clock provides the monotonic instants used for every rate computation.
//
// Instants are raw ticks of a monotonic source. They are converted to seconds
// through a Timebase that is queried once at startup, so the conversion stays
// exact on platforms whose tick is not a nanosecond.
package clock

// Instant is a raw monotonic tick count.
type Instant uint64

// Timebase converts ticks to nanoseconds: ns = ticks * Numer / Denom.
type Timebase struct {
	Numer uint32
	Denom uint32
}

// Nanosecond is the identity timebase used by sources that already tick in ns.
var Nanosecond = Timebase{Numer: 1, Denom: 1}

// Seconds converts a tick delta to seconds.
// A zero denominator is treated as the identity timebase.
func (tb Timebase) Seconds(ticks uint64) float64 {
	if tb.Numer == 0 || tb.Denom == 0 {
		return float64(ticks) / 1e9
	}
	return float64(ticks) * float64(tb.Numer) / float64(tb.Denom) / 1e9
}

// Elapsed returns the seconds between from and to, or 0 when to is not after from.
func (tb Timebase) Elapsed(from, to Instant) float64 {
	if to <= from {
		return 0
	}
	return tb.Seconds(uint64(to - from))
}

// Source yields monotonic instants.
type Source interface {
	Now() Instant
	Timebase() Timebase
}

// Func adapts a function to a nanosecond Source.
type Func func() Instant

func (f Func) Now() Instant       { return f() }
func (f Func) Timebase() Timebase { return Nanosecond }
