package application

import "time"

// Backoff is a bounded exponential delay schedule: Initial, Initial*Factor,
// ... capped at Max. It is not safe for concurrent use; the poll loop owns it.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64

	current time.Duration
}

func NewBackoff(initial, max time.Duration, factor float64) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	if factor < 1 {
		factor = 2
	}
	return &Backoff{Initial: initial, Max: max, Factor: factor}
}

// Next returns the delay for the next consecutive failure.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Initial
	} else {
		next := time.Duration(float64(b.current) * b.Factor)
		if next < b.current || next > b.Max {
			// overflow or past the cap
			next = b.Max
		}
		b.current = next
	}
	if b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

// NextAtLeast is Next raised to hint (a platform retry-after), still capped.
func (b *Backoff) NextAtLeast(hint time.Duration) time.Duration {
	d := b.Next()
	if hint > d {
		d = hint
		if d > b.Max {
			d = b.Max
		}
		b.current = d
	}
	return d
}

// Reset starts the schedule over after a success.
func (b *Backoff) Reset() { b.current = 0 }
