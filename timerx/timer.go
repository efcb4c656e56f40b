package timerx

import "time"

// Deadline fires once when an operation has waited long enough.
type Deadline struct {
	d     time.Duration
	timer *time.Timer
}

// NewDeadline starts a deadline of d. A deadline of zero or less never fires.
func NewDeadline(d time.Duration) *Deadline {
	dl := &Deadline{d: d}
	if d > 0 {
		dl.timer = time.NewTimer(d)
	}
	return dl
}

// C is nil for a deadline that never fires, so a select on it blocks forever.
func (dl *Deadline) C() <-chan time.Time {
	if dl.timer == nil {
		return nil
	}
	return dl.timer.C
}

func (dl *Deadline) Duration() time.Duration {
	return dl.d
}

// Stop releases the timer. A value it already sent is drained.
func (dl *Deadline) Stop() {
	if dl.timer == nil || dl.timer.Stop() {
		return
	}
	select {
	case <-dl.timer.C:
	default:
	}
}
