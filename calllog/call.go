// ABOUTME: In-progress phone call with a one-second elapsed-time ticker
// ABOUTME: Ending, cancelling, or cancelling the context always stops the ticker goroutine
package calllog

import (
	"context"
	"sync"
	"time"

	"github.com/harperreed/clientbook/models"
)

// FollowUpDefault is the follow-up offset used when none is given.
const FollowUpDefault = 7 * 24 * time.Hour

type State int

const (
	Calling State = iota
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Calling:
		return "on call"
	case Completed:
		return "completed"
	default:
		return "cancelled"
	}
}

type Option func(*Call)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Call) { c.now = now }
}

// WithInterval changes the tick interval from one second.
func WithInterval(d time.Duration) Option {
	return func(c *Call) { c.interval = d }
}

// Call is one call from Start until End or Cancel.
type Call struct {
	ClientID string

	now      func() time.Time
	interval time.Duration
	onTick   func(elapsed time.Duration)

	mu    sync.Mutex
	state State
	start time.Time
	end   time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start begins a call. onTick, when non-nil, receives the whole-second
// elapsed time on every tick from the ticker goroutine; it must not call
// End or Cancel.
func Start(ctx context.Context, clientID string, onTick func(elapsed time.Duration), opts ...Option) *Call {
	c := &Call{
		ClientID: clientID,
		now:      time.Now,
		interval: time.Second,
		onTick:   onTick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	go c.run(ctx)
	return c
}

func (c *Call) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.finish(Cancelled)
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if c.onTick != nil {
				c.onTick(c.Elapsed())
			}
		}
	}
}

// finish records the terminal state once.
func (c *Call) finish(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Calling {
		return false
	}
	c.state = s
	c.end = c.now()
	return true
}

func (c *Call) halt(s State) {
	c.finish(s)
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// End stops the timer and returns the call length. Calling it again
// returns the same length.
func (c *Call) End() time.Duration {
	c.halt(Completed)
	return c.Elapsed()
}

// Cancel stops the timer without completing the call.
func (c *Call) Cancel() {
	c.halt(Cancelled)
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed is the call length truncated to whole seconds. It stops growing
// once the call ends.
func (c *Call) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	to := c.now()
	if c.state != Calling {
		to = c.end
	}
	return to.Sub(c.start).Truncate(time.Second)
}

// StartedAt is when the call began.
func (c *Call) StartedAt() time.Time {
	return c.start
}

// Minutes rounds a call length up to whole minutes.
func Minutes(d time.Duration) int {
	secs := int(d / time.Second)
	return (secs + 59) / 60
}

// Summary is what the caller fills in after hanging up.
type Summary struct {
	OpportunityID string
	Notes         string
	Outcome       string
	FollowUp      bool
	// FollowUpDate overrides the default of seven days after the call ends.
	FollowUpDate *int64
}

// Interaction builds the call record. The call is ended first if it is
// still running.
func (c *Call) Interaction(s Summary) models.InteractionInput {
	if c.State() == Calling {
		c.End()
	}
	c.mu.Lock()
	end := c.end
	c.mu.Unlock()

	in := models.InteractionInput{
		ClientID:      c.ClientID,
		OpportunityID: s.OpportunityID,
		Type:          models.InteractionCall,
		Date:          models.Millis(c.start),
		Duration:      models.Int(Minutes(c.Elapsed())),
		Notes:         s.Notes,
		Outcome:       s.Outcome,
	}
	if s.FollowUp {
		if s.FollowUpDate != nil {
			in.FollowUpDate = models.Int64(*s.FollowUpDate)
		} else {
			in.FollowUpDate = models.Int64(models.Millis(end.Add(FollowUpDefault)))
		}
	}
	return in
}
