package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

// Log reports through a structured logger.
type Log struct {
	L *slog.Logger
}

// NewLog creates a reporter on l, or on the default logger when l is nil.
func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{L: l}
}

func (r *Log) Status(s social.Status) {
	r.L.Info("city status",
		"city", s.Name,
		"year", s.Year,
		"population", s.Population,
		"army", s.Army,
		"bushels", fmt.Sprintf("%.1f", s.Bushels),
		"acres", s.Acres,
		"starved", s.Starved,
	)
}

func (r *Log) Notice(e engine.Event) {
	level := slog.LevelInfo
	if e.Category == engine.CategoryWarning {
		level = slog.LevelWarn
	}
	args := []any{"year", e.Year, "city", e.City, "category", e.Category, "description", e.Description}
	if e.Code != "" {
		args = append(args, "code", e.Code)
	}
	r.L.Log(context.Background(), level, "event", args...)
}

func (r *Log) Market(year int, snap economy.Snapshot, fills []economy.Fill) {
	rejected := 0
	for _, f := range fills {
		if f.Rejected() {
			rejected++
		}
	}
	r.L.Info("market settled",
		"year", year,
		"price", fmt.Sprintf("%.2f", snap.Price),
		"units", snap.Units,
		"offers", len(fills),
		"rejected", rejected,
	)
}

func (r *Log) Battle(b engine.BattleReport) {
	r.L.Info("battle",
		"victor", b.Battle.Victor,
		"loser", b.Battle.Loser,
		"victor_army", b.Victor.Army,
		"loser_army", b.Loser.Army,
	)
}

func (r *Log) Summary(scores []social.Score) {
	for _, s := range scores {
		r.L.Info("score", "city", s.Name, "years", s.Years, "starved", s.Starved, "born", s.Born, "score", fmt.Sprintf("%.2f", s.Percent))
	}
}
