package report

import (
	"sync"
	"time"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

// maxEvents bounds the event history kept in memory.
const maxEvents = 1000

// MarketYear is the market state after one year's settlement.
type MarketYear struct {
	Year  int            `json:"year"`
	Price float64        `json:"price"`
	Units int            `json:"units"`
	Fills []economy.Fill `json:"fills"`
}

// Overview is the headline state of a run.
type Overview struct {
	RunID    string    `json:"run_id"`
	Seed     int64     `json:"seed"`
	Started  time.Time `json:"started"`
	Year     int       `json:"year"`
	Price    float64   `json:"price"`
	Units    int       `json:"units"`
	Cities   int       `json:"cities"`
	Battles  int       `json:"battles"`
	Finished bool      `json:"finished"`
}

// Recorder keeps the latest view of a run for concurrent readers. Every
// recorded item is also passed to Notify, when set.
type Recorder struct {
	RunID   string
	Seed    int64
	Started time.Time

	mu       sync.RWMutex
	order    []string
	statuses map[string]social.Status
	events   []engine.Event
	markets  []MarketYear
	battles  []engine.BattleReport
	scores   []social.Score
	notify   func(kind string, payload any)
}

// NewRecorder creates an empty recorder for a run.
func NewRecorder(runID string, seed int64) *Recorder {
	return &Recorder{
		RunID:    runID,
		Seed:     seed,
		Started:  time.Now(),
		statuses: make(map[string]social.Status),
	}
}

// OnRecord registers fn to receive every recorded item.
func (r *Recorder) OnRecord(fn func(kind string, payload any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = fn
}

func (r *Recorder) emit(kind string, payload any) {
	r.mu.RLock()
	fn := r.notify
	r.mu.RUnlock()
	if fn != nil {
		fn(kind, payload)
	}
}

func (r *Recorder) Status(s social.Status) {
	r.mu.Lock()
	r.put(s)
	r.mu.Unlock()
	r.emit("status", s)
}

func (r *Recorder) put(s social.Status) {
	if _, ok := r.statuses[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.statuses[s.Name] = s
}

func (r *Recorder) Notice(e engine.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
	r.mu.Unlock()
	r.emit("event", e)
}

func (r *Recorder) Market(year int, snap economy.Snapshot, fills []economy.Fill) {
	my := MarketYear{Year: year, Price: snap.Price, Units: snap.Units, Fills: fills}
	r.mu.Lock()
	r.markets = append(r.markets, my)
	r.mu.Unlock()
	r.emit("market", my)
}

func (r *Recorder) Battle(b engine.BattleReport) {
	r.mu.Lock()
	r.battles = append(r.battles, b)
	r.put(b.Victor)
	r.put(b.Loser)
	r.mu.Unlock()
	r.emit("battle", b)
}

func (r *Recorder) Summary(scores []social.Score) {
	r.mu.Lock()
	r.scores = make([]social.Score, len(scores))
	copy(r.scores, scores)
	r.mu.Unlock()
	r.emit("summary", scores)
}

// Overview returns the headline state.
func (r *Recorder) Overview() Overview {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o := Overview{
		RunID:    r.RunID,
		Seed:     r.Seed,
		Started:  r.Started,
		Cities:   len(r.order),
		Battles:  len(r.battles),
		Finished: r.scores != nil,
	}
	if n := len(r.markets); n > 0 {
		last := r.markets[n-1]
		o.Year, o.Price, o.Units = last.Year, last.Price, last.Units
	}
	return o
}

// Statuses returns the latest status of every city-state in turn order.
func (r *Recorder) Statuses() []social.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]social.Status, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.statuses[name])
	}
	return out
}

// StatusOf returns the latest status of one city-state.
func (r *Recorder) StatusOf(name string) (social.Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[name]
	return s, ok
}

// Events returns up to limit of the most recent events, oldest first.
// A city filters to that city-state's events.
func (r *Recorder) Events(city string, limit int) []engine.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []engine.Event
	for i := len(r.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if city == "" || r.events[i].City == city {
			out = append(out, r.events[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Markets returns the per-year market history.
func (r *Recorder) Markets() []MarketYear {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]MarketYear(nil), r.markets...)
}

// Battles returns every battle so far.
func (r *Recorder) Battles() []engine.BattleReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]engine.BattleReport(nil), r.battles...)
}

// Scores returns the final scores, or nil while the run is in progress.
func (r *Recorder) Scores() []social.Score {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.scores == nil {
		return nil
	}
	return append([]social.Score(nil), r.scores...)
}
