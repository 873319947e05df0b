package clock

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tradesim/pkg/apperrors"
)

// TestClock is a deterministic clock for backtests. It never runs real time:
// callers set or advance it explicitly and receive the due time-event
// invocations to run.
type TestClock struct {
	current time.Time
	set     timerSet
}

// NewTestClock creates a test clock at the given start time (UTC).
func NewTestClock(start time.Time) *TestClock {
	return &TestClock{current: start.UTC(), set: newTimerSet()}
}

// TimeNow returns the clock's current virtual time.
func (c *TestClock) TimeNow() time.Time {
	return c.current
}

// SetTime moves the clock without firing any timers.
func (c *TestClock) SetTime(to time.Time) {
	c.current = to.UTC()
}

// RegisterDefaultHandler sets the fallback time-event handler.
func (c *TestClock) RegisterDefaultHandler(handler TimeEventHandler) {
	c.set.defaultHandler = handler
}

// SetTimeAlert registers a one-shot alert at the given time.
func (c *TestClock) SetTimeAlert(name string, alertTime time.Time, handler TimeEventHandler) error {
	if alertTime.Before(c.current) {
		return apperrors.Invalid("alert time %s is before now %s", alertTime, c.current)
	}
	_, err := c.set.register(name, alertTime.UTC(), 0, nil, handler)
	return err
}

// SetTimer registers a recurring timer firing every interval.
func (c *TestClock) SetTimer(name string, interval time.Duration, start, stop *time.Time, handler TimeEventHandler) error {
	startTime, err := validateTimer(c.current, interval, start, stop)
	if err != nil {
		return err
	}
	_, err = c.set.register(name, startTime.Add(interval).UTC(), interval, stop, handler)
	return err
}

// CancelTimer removes the named alert or timer.
func (c *TestClock) CancelTimer(name string) error {
	return c.set.cancel(name)
}

// CancelAllTimers removes every registered alert and timer.
func (c *TestClock) CancelAllTimers() {
	c.set.cancelAll()
}

// TimerNames returns the registered names, sorted.
func (c *TestClock) TimerNames() []string {
	return c.set.names()
}

// NextEventTime returns the earliest scheduled event time, if any.
func (c *TestClock) NextEventTime() (time.Time, bool) {
	var next time.Time
	found := false
	for _, t := range c.set.timers {
		if !found || t.nextTime.Before(next) {
			next = t.nextTime
			found = true
		}
	}
	return next, found
}

// AdvanceTime moves the clock to the given time and returns the due
// time-event invocations in non-decreasing timestamp order, ties broken by
// timer insertion order. An advance into the past returns no events and
// leaves the clock unchanged; an advance to exactly now returns any
// exactly-due events.
func (c *TestClock) AdvanceTime(to time.Time) []TimeEventInvocation {
	to = to.UTC()
	if to.Before(c.current) {
		return nil
	}

	ordered := make([]*timer, 0, len(c.set.timers))
	for _, t := range c.set.timers {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	type pending struct {
		inv TimeEventInvocation
		seq int
	}
	var due []pending
	for _, t := range ordered {
		for !t.nextTime.After(to) {
			due = append(due, pending{
				inv: TimeEventInvocation{
					Event: TimeEvent{
						Name:      t.name,
						ID:        uuid.New(),
						Timestamp: t.nextTime,
					},
					Handler: t.handler,
				},
				seq: t.seq,
			})
			if t.interval <= 0 {
				_ = c.set.cancel(t.name)
				break
			}
			t.nextTime = t.nextTime.Add(t.interval)
			if t.stopTime != nil && t.nextTime.After(*t.stopTime) {
				_ = c.set.cancel(t.name)
				break
			}
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].inv.Event.Timestamp.Equal(due[j].inv.Event.Timestamp) {
			return due[i].inv.Event.Timestamp.Before(due[j].inv.Event.Timestamp)
		}
		return due[i].seq < due[j].seq
	})

	invocations := make([]TimeEventInvocation, 0, len(due))
	for _, p := range due {
		invocations = append(invocations, p.inv)
	}

	c.current = to
	if len(invocations) == 0 {
		return nil
	}
	return invocations
}
