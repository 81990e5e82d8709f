package entropy

// Replay is a Source that returns a fixed sequence of draws, cycling when it
// runs out. Intn(n) maps the next draw onto [0, n).
type Replay struct {
	Draws []float64
	next  int
}

// NewReplay creates a Replay over the given draws.
func NewReplay(draws ...float64) *Replay {
	return &Replay{Draws: draws}
}

func (r *Replay) Float64() float64 {
	if len(r.Draws) == 0 {
		return 0
	}
	v := r.Draws[r.next%len(r.Draws)]
	r.next++
	return v
}

func (r *Replay) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Used returns how many draws have been consumed.
func (r *Replay) Used() int { return r.next }
