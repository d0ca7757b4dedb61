package vote

import (
	"sync"
	"time"
)

// Scheduler delivers the two timed callbacks a vote needs: a periodic
// refresh and a single terminal resolution at the window boundary.
// Cancel drops both; callbacks racing a cancel are tolerated because
// resolution is idempotent.
type Scheduler interface {
	ScheduleRefresh(voteID uint, interval time.Duration, fn func(voteID uint))
	ScheduleResolution(voteID uint, delay time.Duration, fn func(voteID uint))
	Cancel(voteID uint)
}

// TimerScheduler implements Scheduler on process-local timers.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[uint]*voteTimers
}

type voteTimers struct {
	stopRefresh chan struct{}
	resolution  *time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[uint]*voteTimers)}
}

func (s *TimerScheduler) entry(voteID uint) *voteTimers {
	t, ok := s.timers[voteID]
	if !ok {
		t = &voteTimers{}
		s.timers[voteID] = t
	}
	return t
}

// ScheduleRefresh fires fn every interval until Cancel.
func (s *TimerScheduler) ScheduleRefresh(voteID uint, interval time.Duration, fn func(voteID uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.entry(voteID)
	if t.stopRefresh != nil {
		return // already scheduled
	}
	stop := make(chan struct{})
	t.stopRefresh = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn(voteID)
			case <-stop:
				return
			}
		}
	}()
}

// ScheduleResolution fires fn once after delay.
func (s *TimerScheduler) ScheduleResolution(voteID uint, delay time.Duration, fn func(voteID uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.entry(voteID)
	if t.resolution != nil {
		return
	}
	t.resolution = time.AfterFunc(delay, func() { fn(voteID) })
}

// Cancel stops both callbacks for the vote. Safe to call repeatedly and
// for unknown ids.
func (s *TimerScheduler) Cancel(voteID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[voteID]
	if !ok {
		return
	}
	if t.stopRefresh != nil {
		close(t.stopRefresh)
	}
	if t.resolution != nil {
		t.resolution.Stop()
	}
	delete(s.timers, voteID)
}
