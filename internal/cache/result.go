package cache

// Status is the outcome of a cache operation that did not fail.
type Status int

const (
	StatusMiss Status = iota
	StatusHit
	StatusStored
	// StatusRefused means the write was rejected by a cache policy (stale or oversized).
	StatusRefused
	// StatusBypassed means the cache is disabled.
	StatusBypassed
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusStored:
		return "stored"
	case StatusRefused:
		return "refused"
	case StatusBypassed:
		return "bypassed"
	default:
		return "miss"
	}
}

// Lookup carries a cached value together with how it was obtained.
type Lookup[T any] struct {
	Value  T
	Status Status
}

// Hit reports whether Value holds a cached value.
func (l Lookup[T]) Hit() bool { return l.Status == StatusHit }

func hitOf[T any](v T) Lookup[T] { return Lookup[T]{Value: v, Status: StatusHit} }

func missOf[T any]() Lookup[T] { return Lookup[T]{Status: StatusMiss} }
