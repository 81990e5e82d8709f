package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/granary/internal/entropy"
)

func TestEngine_RunsConfiguredYears(t *testing.T) {
	e := NewEngine(3)
	played, finished := 0, 0
	e.OnYear = func(context.Context) error { played++; return nil }
	e.OnFinish = func() { finished++ }

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, played)
	assert.Equal(t, 3, e.Year)
	assert.Equal(t, 1, finished)
	assert.False(t, e.Running())
}

func TestEngine_StopsOnYearError(t *testing.T) {
	e := NewEngine(5)
	boom := errors.New("boom")
	e.OnYear = func(context.Context) error {
		if e.Year == 1 {
			return boom
		}
		return nil
	}
	assert.ErrorIs(t, e.Run(context.Background()), boom)
	assert.Equal(t, 1, e.Year)
}

func TestEngine_StopEndsOpenEndedRun(t *testing.T) {
	e := NewEngine(0)
	e.OnYear = func(context.Context) error {
		if e.Year == 4 {
			e.Stop()
		}
		return nil
	}
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 5, e.Year)
}

func TestEngine_ContextCancelDuringPause(t *testing.T) {
	e := NewEngine(0)
	e.Interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	e.OnYear = func(context.Context) error { cancel(); return nil }
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.Equal(t, 1, e.Year)
}

func TestEngine_StopMidYearFinishesTheYear(t *testing.T) {
	e := NewEngine(5)
	dec := &planDecider{feed: func(t Turn) float64 {
		if t.Status.Name == "Sumer" {
			e.Stop()
		}
		return feedEveryone(t)
	}}
	w, rec := newTestWorld(entropy.NewReplay(0.5), dec)
	e.OnYear = w.RunYear
	e.OnFinish = w.Finish

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 1, e.Year)
	assert.Equal(t, 2, w.Year())
	for _, c := range w.CityStates() {
		assert.Equal(t, 2, c.Year, "%s advanced with the rest of the world", c.Name)
	}
	assert.Len(t, rec.scores, 2, "the summary is still reported")
}

func TestEngine_StopCutsPauseShort(t *testing.T) {
	e := NewEngine(0)
	e.Interval = time.Hour
	finished := false
	e.OnYear = func(context.Context) error { e.Stop(); return nil }
	e.OnFinish = func() { finished = true }

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not interrupt the pause")
	}
	assert.Equal(t, 1, e.Year)
	assert.True(t, finished)
}
