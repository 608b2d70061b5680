package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_FiresInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	m.AfterFunc(time.Second, func() { got = append(got, "a") })
	m.AfterFunc(2*time.Second, func() { got = append(got, "c") })

	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, m.Pending())
	assert.Equal(t, 2500*time.Millisecond, m.Now())
}

func TestManual_EveryAndStop(t *testing.T) {
	m := NewManual()
	var ticks int
	tk := m.Every(time.Second, func() { ticks++ })

	m.Advance(3 * time.Second)
	assert.Equal(t, 3, ticks)

	assert.True(t, tk.Stop())
	assert.False(t, tk.Stop())
	m.Advance(5 * time.Second)
	assert.Equal(t, 3, ticks)
}

func TestManual_StopFromCallback(t *testing.T) {
	m := NewManual()
	var ticks int
	var tk Timer
	tk = m.Every(time.Second, func() {
		ticks++
		if ticks == 2 {
			tk.Stop()
		}
	})
	m.Advance(10 * time.Second)
	assert.Equal(t, 2, ticks)
}

func TestManual_CallbackSchedulesWithinWindow(t *testing.T) {
	m := NewManual()
	var got []time.Duration
	m.AfterFunc(time.Second, func() {
		got = append(got, m.Now())
		m.AfterFunc(time.Second, func() { got = append(got, m.Now()) })
	})
	m.Advance(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, got)
}

func TestManual_StoppedOneShot(t *testing.T) {
	m := NewManual()
	fired := false
	tm := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	m.Advance(2 * time.Second)
	assert.False(t, fired)

	tm2 := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	assert.False(t, tm2.Stop(), "fired timer is no longer pending")
}

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_DoRunsOnLoop(t *testing.T) {
	l := startLoop(t)
	var n int
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Do(func() { n++ }))
	}
	assert.Equal(t, 100, n)
}

func TestLoop_AfterFuncAndStop(t *testing.T) {
	l := startLoop(t)
	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("AfterFunc never fired")
	}

	var late atomic.Bool
	tm := l.AfterFunc(20*time.Millisecond, func() { late.Store(true) })
	require.NoError(t, l.Do(func() { assert.True(t, tm.Stop()) }))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, l.Do(func() {}))
	assert.False(t, late.Load())
}

func TestLoop_EveryStops(t *testing.T) {
	l := startLoop(t)
	var ticks atomic.Int32
	tk := l.Every(5*time.Millisecond, func() { ticks.Add(1) })

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	var at int32
	require.NoError(t, l.Do(func() {
		tk.Stop()
		at = ticks.Load()
	}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, l.Do(func() {}))
	assert.Equal(t, at, ticks.Load(), "no tick may run after Stop")
}

func TestLoop_DoAfterExit(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
	assert.ErrorIs(t, l.Do(func() {}), ErrStopped)
	assert.False(t, l.Post(func() {}))
}
