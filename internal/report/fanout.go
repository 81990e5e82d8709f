package report

import (
	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

// Fanout sends every report to each of its reporters in order.
type Fanout []engine.Reporter

func (f Fanout) Status(s social.Status) {
	for _, r := range f {
		r.Status(s)
	}
}

func (f Fanout) Notice(e engine.Event) {
	for _, r := range f {
		r.Notice(e)
	}
}

func (f Fanout) Market(year int, snap economy.Snapshot, fills []economy.Fill) {
	for _, r := range f {
		r.Market(year, snap, fills)
	}
}

func (f Fanout) Battle(b engine.BattleReport) {
	for _, r := range f {
		r.Battle(b)
	}
}

func (f Fanout) Summary(scores []social.Score) {
	for _, r := range f {
		r.Summary(scores)
	}
}
