// Package report renders and records what happens in the world: a console
// view in the style of a ledger, structured logs, and an in-memory record
// for the spectator API.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

const rule = "--------------------"

// Console writes a human-readable ledger to w.
type Console struct {
	W       io.Writer
	Compact bool // one-line statuses instead of blocks
}

// NewConsole creates a console reporter.
func NewConsole(w io.Writer) *Console {
	return &Console{W: w}
}

func (c *Console) Status(s social.Status) {
	if c.Compact {
		fmt.Fprintln(c.W, "\n"+CompactStatus(s))
		return
	}
	fmt.Fprintf(c.W, "\n%s\n", rule)
	fmt.Fprintf(c.W, "  State: %s\n", s.Name)
	fmt.Fprintf(c.W, "  Year: %d\n", s.Year)
	fmt.Fprintf(c.W, "  Pop.: %s\n", humanize.Comma(int64(s.Population)))
	fmt.Fprintf(c.W, "  Mil.: %s\n", humanize.Comma(int64(s.Army)))
	fmt.Fprintf(c.W, "  Bshl: %s\n", humanize.CommafWithDigits(s.Bushels, 1))
	fmt.Fprintf(c.W, "  Acre: %s\n", humanize.Comma(int64(s.Acres)))
	fmt.Fprintf(c.W, "  Starved: %s\n", humanize.Comma(int64(s.Starved)))
	fmt.Fprintln(c.W, rule)
}

// CompactStatus renders a status on one line.
func CompactStatus(s social.Status) string {
	return fmt.Sprintf(">>> %s: %d | Pop: %s | Mil.: %s | Bsh: %.1f | Acre: %s | Starved: %s",
		s.Name, s.Year,
		humanize.Comma(int64(s.Population)),
		humanize.Comma(int64(s.Army)),
		s.Bushels,
		humanize.Comma(int64(s.Acres)),
		humanize.Comma(int64(s.Starved)),
	)
}

func (c *Console) Notice(e engine.Event) {
	switch e.Category {
	case engine.CategoryDisaster:
		fmt.Fprintf(c.W, "\n!!! %s: %s\n", e.City, e.Description)
	case engine.CategoryWarning:
		fmt.Fprintf(c.W, "warning: %s: %s\n", e.City, e.Description)
	default:
		fmt.Fprintf(c.W, "%s: %s\n", e.City, e.Description)
	}
}

func (c *Console) Market(year int, snap economy.Snapshot, fills []economy.Fill) {
	fmt.Fprintf(c.W, "\nLand market, %s year: price %.2f, %s acres on hand, %d offers settled\n",
		humanize.Ordinal(year), snap.Price, humanize.Comma(int64(snap.Units)), len(fills))
}

func (c *Console) Battle(b engine.BattleReport) {
	fmt.Fprintf(c.W, "\n%s won the battle against %s.\n", b.Battle.Victor, b.Battle.Loser)
	fmt.Fprintln(c.W, CompactStatus(b.Victor))
	fmt.Fprintln(c.W, CompactStatus(b.Loser))
}

func (c *Console) Summary(scores []social.Score) {
	fmt.Fprintln(c.W)
	for _, s := range scores {
		fmt.Fprintln(c.W, rule)
		fmt.Fprintf(c.W, "State: %s\n", s.Name)
		fmt.Fprintf(c.W, "Years: %d\n", s.Years)
		fmt.Fprintf(c.W, "Starved: %s\n", humanize.Comma(int64(s.Starved)))
		fmt.Fprintf(c.W, "Born: %s\n", humanize.Comma(int64(s.Born)))
		fmt.Fprintf(c.W, "Score: %.2f%%\n", s.Percent)
	}
	fmt.Fprintln(c.W, strings.Repeat("-", len(rule)))
}
