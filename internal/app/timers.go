package app

import (
	"context"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
)

// questionTimer is the single pending countdown for a session. Arming a new
// one cancels the old handle so a replaced timer can never fire twice.
type questionTimer struct {
	timer *time.Timer
	index int
}

func (c *Coordinator) armQuestionTimer(code string, index int, d time.Duration) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if existing, ok := c.timers[code]; ok {
		existing.timer.Stop()
	}
	c.timers[code] = &questionTimer{
		index: index,
		timer: time.AfterFunc(d, func() { c.onQuestionTimeout(code, index) }),
	}
}

func (c *Coordinator) armRevealTimer(code string, index int) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if existing, ok := c.timers[code]; ok {
		existing.timer.Stop()
	}
	c.timers[code] = &questionTimer{
		index: index,
		timer: time.AfterFunc(c.cfg.RevealDelay, func() { c.onRevealTimeout(code, index) }),
	}
}

func (c *Coordinator) cancelTimer(code string) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if existing, ok := c.timers[code]; ok {
		existing.timer.Stop()
		delete(c.timers, code)
	}
}

// onQuestionTimeout fires when a question's time runs out. A stopped timer
// can still fire under scheduling jitter, so the session is re-validated
// under its lock before anything happens; a stale timeout is a no-op. The
// reveal timer is armed before the lock drops, otherwise a concurrent host
// advance could arm the next question's countdown only to have this late
// handler replace it with a handle that will never act.
func (c *Coordinator) onQuestionTimeout(code string, index int) {
	ctx := context.Background()

	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil || sess.Stage != domain.StageQuestion || sess.CurrentQuestionIndex != index {
		return
	}
	if _, err := c.revealLocked(ctx, code); err != nil {
		return
	}
	c.armRevealTimer(code, index)
}

// onRevealTimeout auto-advances a short pause after an automatic reveal.
func (c *Coordinator) onRevealTimeout(code string, index int) {
	ctx := context.Background()

	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil || sess.Stage != domain.StageReveal || sess.CurrentQuestionIndex != index {
		return
	}
	// The timer acts with the host's authority.
	if _, err := c.advanceLocked(ctx, code, sess.HostID); err != nil {
		return
	}
}
