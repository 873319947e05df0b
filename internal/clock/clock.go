// Package clock provides the time surface shared by live trading and
// backtests: wall-clock and test-clock variants exposing one-shot alerts and
// recurring timers.
package clock

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tradesim/pkg/apperrors"
)

// TimeEvent is emitted when an alert or timer fires.
type TimeEvent struct {
	Name      string
	ID        uuid.UUID
	Timestamp time.Time
}

// TimeEventHandler consumes time events.
type TimeEventHandler func(TimeEvent)

// TimeEventInvocation pairs a due time event with the handler registered for
// it.
type TimeEventInvocation struct {
	Event   TimeEvent
	Handler TimeEventHandler
}

// Clock is the shared surface of the wall clock and the test clock.
type Clock interface {
	// TimeNow returns the current time in UTC.
	TimeNow() time.Time

	// RegisterDefaultHandler sets the handler used when an alert or timer is
	// registered without one.
	RegisterDefaultHandler(handler TimeEventHandler)

	// SetTimeAlert registers a one-shot alert at the given time.
	SetTimeAlert(name string, alertTime time.Time, handler TimeEventHandler) error

	// SetTimer registers a recurring timer. The first event fires at
	// start + interval; start defaults to now, stop is optional.
	SetTimer(name string, interval time.Duration, start, stop *time.Time, handler TimeEventHandler) error

	// CancelTimer removes the named alert or timer.
	CancelTimer(name string) error

	// CancelAllTimers removes every registered alert and timer.
	CancelAllTimers()

	// TimerNames returns the names of registered alerts and timers.
	TimerNames() []string
}

// timer is the shared bookkeeping for alerts and recurring timers. An alert
// has interval zero.
type timer struct {
	name     string
	nextTime time.Time
	interval time.Duration
	stopTime *time.Time
	handler  TimeEventHandler
	seq      int
}

// timerSet holds registered timers with unique names and stable insertion
// order for tie-breaking.
type timerSet struct {
	timers         map[string]*timer
	defaultHandler TimeEventHandler
	seq            int
}

func newTimerSet() timerSet {
	return timerSet{timers: make(map[string]*timer)}
}

func (s *timerSet) register(name string, nextTime time.Time, interval time.Duration, stop *time.Time, handler TimeEventHandler) (*timer, error) {
	if err := apperrors.NotEmpty(name, "timer name"); err != nil {
		return nil, err
	}
	if _, ok := s.timers[name]; ok {
		return nil, apperrors.Invalid("timer name %q already registered", name)
	}
	if handler == nil {
		handler = s.defaultHandler
	}
	if handler == nil {
		return nil, apperrors.ErrNoHandler
	}
	s.seq++
	t := &timer{
		name:     name,
		nextTime: nextTime,
		interval: interval,
		stopTime: stop,
		handler:  handler,
		seq:      s.seq,
	}
	s.timers[name] = t
	return t, nil
}

func (s *timerSet) cancel(name string) error {
	if _, ok := s.timers[name]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.timers, name)
	return nil
}

func (s *timerSet) cancelAll() {
	for name := range s.timers {
		delete(s.timers, name)
	}
}

func (s *timerSet) names() []string {
	names := make([]string, 0, len(s.timers))
	for name := range s.timers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateTimer(now time.Time, interval time.Duration, start, stop *time.Time) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, apperrors.Invalid("timer interval must be positive (was %s)", interval)
	}
	startTime := now
	if start != nil {
		startTime = *start
	}
	if stop != nil && stop.Before(startTime.Add(interval)) {
		return time.Time{}, apperrors.Invalid("timer stop time must be at least one interval after start")
	}
	return startTime, nil
}
