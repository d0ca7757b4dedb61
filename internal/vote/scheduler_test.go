package vote_test

import (
	"sync/atomic"
	"testing"
	"time"

	"modguard/backend/internal/vote"

	"github.com/stretchr/testify/assert"
)

func TestTimerScheduler_ResolutionFiresOnce(t *testing.T) {
	s := vote.NewTimerScheduler()
	fired := make(chan uint, 2)

	s.ScheduleResolution(1, 20*time.Millisecond, func(voteID uint) { fired <- voteID })

	select {
	case id := <-fired:
		assert.Equal(t, uint(1), id)
	case <-time.After(time.Second):
		t.Fatal("resolution callback never fired")
	}

	select {
	case <-fired:
		t.Fatal("resolution callback fired twice")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTimerScheduler_CancelStopsResolution(t *testing.T) {
	s := vote.NewTimerScheduler()
	var fired atomic.Int32

	s.ScheduleResolution(1, 40*time.Millisecond, func(uint) { fired.Add(1) })
	s.Cancel(1)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestTimerScheduler_RefreshTicksUntilCancel(t *testing.T) {
	s := vote.NewTimerScheduler()
	var ticks atomic.Int32

	s.ScheduleRefresh(1, 10*time.Millisecond, func(uint) { ticks.Add(1) })

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Cancel(1)
	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), settled+1, "at most one in-flight tick may land after cancel")
}

func TestTimerScheduler_CancelUnknownIDIsSafe(t *testing.T) {
	s := vote.NewTimerScheduler()
	assert.NotPanics(t, func() {
		s.Cancel(42)
		s.Cancel(42)
	})
}
