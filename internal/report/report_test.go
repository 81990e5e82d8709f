package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/granary/internal/economy"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/social"
)

func sumer() social.Status {
	return social.Status{Name: "Sumer", Year: 3, Population: 1200, Army: 4, Bushels: 75.5, Acres: 20, Starved: 2}
}

func TestConsoleStatusBlock(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Status(sumer())

	out := buf.String()
	assert.Contains(t, out, "State: Sumer")
	assert.Contains(t, out, "Year: 3")
	assert.Contains(t, out, "Pop.: 1,200")
	assert.Contains(t, out, "Bshl: 75.5")
	assert.Contains(t, out, "Starved: 2")
}

func TestConsoleCompact(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Compact = true
	c.Status(sumer())

	assert.Contains(t, buf.String(), ">>> Sumer: 3 | Pop: 1,200 | Mil.: 4 | Bsh: 75.5 | Acre: 20 | Starved: 2")
}

func TestConsoleMarketAndSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Market(2, economy.Snapshot{Price: 16.5, Units: 1500}, make([]economy.Fill, 3))
	c.Summary([]social.Score{{Name: "Asher", Years: 10, Starved: 5, Born: 100, Percent: 95}})

	out := buf.String()
	assert.Contains(t, out, "2nd year: price 16.50, 1,500 acres on hand, 3 offers settled")
	assert.Contains(t, out, "State: Asher")
	assert.Contains(t, out, "Score: 95.00%")
}

func TestConsoleNoticeCategories(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Notice(engine.Event{City: "Sumer", Category: engine.CategoryDisaster, Description: "Rats!"})
	c.Notice(engine.Event{City: "Sumer", Category: engine.CategoryWarning, Description: "bad plan"})

	assert.Contains(t, buf.String(), "!!! Sumer: Rats!")
	assert.Contains(t, buf.String(), "warning: Sumer: bad plan")
}

func TestLogReporterLevels(t *testing.T) {
	var buf bytes.Buffer
	r := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	r.Notice(engine.Event{Year: 1, City: "Sumer", Category: engine.CategoryWarning, Description: "x"})
	r.Status(sumer())

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.NotContains(t, out, "code=")
	assert.Contains(t, out, "city=Sumer")
	assert.Contains(t, out, "bushels=75.5")
}

func TestLogReporterCarriesWarningCode(t *testing.T) {
	var buf bytes.Buffer
	r := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	r.Notice(engine.Event{Year: 2, City: "Asher", Category: engine.CategoryWarning, Description: "bad plant", Code: "INVALID_DECISION"})
	assert.Contains(t, buf.String(), "code=INVALID_DECISION")
}

type counter struct{ n int }

func (c *counter) Status(social.Status)                         { c.n++ }
func (c *counter) Notice(engine.Event)                          { c.n++ }
func (c *counter) Market(int, economy.Snapshot, []economy.Fill) { c.n++ }
func (c *counter) Battle(engine.BattleReport)                   { c.n++ }
func (c *counter) Summary([]social.Score)                       { c.n++ }

func TestFanoutReachesEveryReporter(t *testing.T) {
	a, b := &counter{}, &counter{}
	f := Fanout{a, b}
	f.Status(sumer())
	f.Notice(engine.Event{})
	f.Market(1, economy.Snapshot{}, nil)
	f.Battle(engine.BattleReport{})
	f.Summary(nil)

	assert.Equal(t, 5, a.n)
	assert.Equal(t, 5, b.n)
}

func TestRecorderKeepsLatestStatusInOrder(t *testing.T) {
	r := NewRecorder("run-1", 42)
	r.Status(social.Status{Name: "Sumer", Year: 1})
	r.Status(social.Status{Name: "Asher", Year: 1})
	r.Status(social.Status{Name: "Sumer", Year: 2})

	got := r.Statuses()
	require.Len(t, got, 2)
	assert.Equal(t, "Sumer", got[0].Name)
	assert.Equal(t, 2, got[0].Year)
	assert.Equal(t, "Asher", got[1].Name)

	_, ok := r.StatusOf("Ur")
	assert.False(t, ok)
}

func TestRecorderEventsFilterAndTrim(t *testing.T) {
	r := NewRecorder("run-1", 1)
	for i := 0; i < maxEvents+10; i++ {
		city := "Sumer"
		if i%2 == 1 {
			city = "Asher"
		}
		r.Notice(engine.Event{Year: i, City: city, Description: fmt.Sprint(i)})
	}

	all := r.Events("", 0)
	require.Len(t, all, maxEvents)
	assert.Equal(t, 10, all[0].Year)

	last := r.Events("Asher", 3)
	require.Len(t, last, 3)
	assert.Equal(t, []int{maxEvents + 5, maxEvents + 7, maxEvents + 9}, []int{last[0].Year, last[1].Year, last[2].Year})
}

func TestRecorderOverviewAndScores(t *testing.T) {
	r := NewRecorder("run-1", 7)
	r.Status(sumer())
	r.Market(1, economy.Snapshot{Price: 17, Units: 180}, nil)
	assert.Nil(t, r.Scores())

	o := r.Overview()
	assert.Equal(t, "run-1", o.RunID)
	assert.Equal(t, int64(7), o.Seed)
	assert.Equal(t, 1, o.Year)
	assert.Equal(t, 17.0, o.Price)
	assert.Equal(t, 1, o.Cities)
	assert.False(t, o.Finished)

	r.Summary([]social.Score{{Name: "Sumer"}})
	assert.True(t, r.Overview().Finished)
	assert.Len(t, r.Scores(), 1)
}

func TestRecorderBattleUpdatesStatuses(t *testing.T) {
	r := NewRecorder("run-1", 1)
	r.Battle(engine.BattleReport{
		Battle: engine.Battle{Victor: "Sumer", Loser: "Asher"},
		Victor: social.Status{Name: "Sumer", Army: 5},
		Loser:  social.Status{Name: "Asher", Acres: 15},
	})

	s, ok := r.StatusOf("Asher")
	require.True(t, ok)
	assert.Equal(t, 15, s.Acres)
	assert.Len(t, r.Battles(), 1)
}

func TestRecorderNotify(t *testing.T) {
	r := NewRecorder("run-1", 1)
	var mu sync.Mutex
	var kinds []string
	r.OnRecord(func(kind string, _ any) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, kind)
	})

	r.Status(sumer())
	r.Notice(engine.Event{})
	r.Market(1, economy.Snapshot{}, nil)
	r.Summary(nil)

	assert.Equal(t, []string{"status", "event", "market", "summary"}, kinds)
}
