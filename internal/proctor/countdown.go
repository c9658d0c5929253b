package proctor

// GraceSeconds is the time allowed to cure a fullscreen, tab or focus violation.
const GraceSeconds = 30

// Countdown is a one-second-resolution clock that only decrements while active.
// Tick is driven by the owning Session; Countdown holds no lock of its own.
type Countdown struct {
	initial   int
	remaining int
	active    bool
	expire    func()
}

// NewCountdown returns an inactive countdown starting at seconds.
func NewCountdown(seconds int, expire func()) *Countdown {
	if expire == nil {
		expire = func() {}
	}
	return &Countdown{initial: seconds, remaining: seconds, expire: expire}
}

func (c *Countdown) Start() {
	if c.remaining > 0 {
		c.active = true
	}
}

func (c *Countdown) Stop() { c.active = false }

// Reset stops the countdown and restores its initial value.
func (c *Countdown) Reset() {
	c.active = false
	c.remaining = c.initial
}

func (c *Countdown) Active() bool   { return c.active }
func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Initial() int   { return c.initial }

// Tick advances one second. It returns true on the tick that reaches zero,
// after invoking the expire callback.
func (c *Countdown) Tick() bool {
	if !c.active {
		return false
	}

	c.remaining--
	if c.remaining > 0 {
		return false
	}

	c.remaining = 0
	c.active = false
	c.expire()
	return true
}
