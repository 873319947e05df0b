package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tradesim/pkg/apperrors"
)

// WallClock is the live clock. Alerts and timers run on real time via the
// runtime timer wheel; handlers are invoked on timer goroutines and must not
// block.
type WallClock struct {
	mu      sync.Mutex
	set     timerSet
	pending map[string]*time.Timer
}

// NewWallClock creates a live clock.
func NewWallClock() *WallClock {
	return &WallClock{set: newTimerSet(), pending: make(map[string]*time.Timer)}
}

// TimeNow returns the current wall time in UTC.
func (c *WallClock) TimeNow() time.Time {
	return time.Now().UTC()
}

// RegisterDefaultHandler sets the fallback time-event handler.
func (c *WallClock) RegisterDefaultHandler(handler TimeEventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set.defaultHandler = handler
}

// SetTimeAlert registers a one-shot alert at the given time.
func (c *WallClock) SetTimeAlert(name string, alertTime time.Time, handler TimeEventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if alertTime.Before(now) {
		return apperrors.Invalid("alert time %s is before now %s", alertTime, now)
	}
	t, err := c.set.register(name, alertTime.UTC(), 0, nil, handler)
	if err != nil {
		return err
	}
	c.pending[name] = time.AfterFunc(time.Until(alertTime), func() {
		c.fire(t, alertTime.UTC(), true)
	})
	return nil
}

// SetTimer registers a recurring timer firing every interval.
func (c *WallClock) SetTimer(name string, interval time.Duration, start, stop *time.Time, handler TimeEventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	startTime, err := validateTimer(now, interval, start, stop)
	if err != nil {
		return err
	}
	first := startTime.Add(interval).UTC()
	t, err := c.set.register(name, first, interval, stop, handler)
	if err != nil {
		return err
	}
	c.schedule(t, first)
	return nil
}

// schedule arms the runtime timer for the next occurrence. Caller holds mu.
func (c *WallClock) schedule(t *timer, at time.Time) {
	c.pending[t.name] = time.AfterFunc(time.Until(at), func() {
		c.fire(t, at, false)
	})
}

func (c *WallClock) fire(t *timer, at time.Time, oneShot bool) {
	c.mu.Lock()
	if _, ok := c.set.timers[t.name]; !ok {
		c.mu.Unlock()
		return
	}
	if oneShot {
		_ = c.set.cancel(t.name)
		delete(c.pending, t.name)
	} else {
		next := at.Add(t.interval)
		if t.stopTime != nil && next.After(*t.stopTime) {
			_ = c.set.cancel(t.name)
			delete(c.pending, t.name)
		} else {
			t.nextTime = next
			c.schedule(t, next)
		}
	}
	handler := t.handler
	c.mu.Unlock()

	handler(TimeEvent{Name: t.name, ID: uuid.New(), Timestamp: at})
}

// CancelTimer removes the named alert or timer.
func (c *WallClock) CancelTimer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt, ok := c.pending[name]; ok {
		rt.Stop()
		delete(c.pending, name)
	}
	return c.set.cancel(name)
}

// CancelAllTimers removes every registered alert and timer.
func (c *WallClock) CancelAllTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, rt := range c.pending {
		rt.Stop()
		delete(c.pending, name)
	}
	c.set.cancelAll()
}

// TimerNames returns the registered names, sorted.
func (c *WallClock) TimerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.names()
}
