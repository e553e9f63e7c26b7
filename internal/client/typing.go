package client

import (
	"sync"
	"time"
)

// typingTracker enforces the typing contract: a burst of keystrokes emits
// exactly one typing event, then exactly one stopTyping after the idle
// window elapses or the message is sent.
type typingTracker struct {
	mu     sync.Mutex
	idle   time.Duration
	timer  *time.Timer
	active bool
	emit   func(start bool)
}

func newTypingTracker(idle time.Duration, emit func(start bool)) *typingTracker {
	return &typingTracker{idle: idle, emit: emit}
}

// Pulse registers a keystroke. The first pulse of a burst emits typing;
// subsequent pulses only push the idle deadline out.
func (t *typingTracker) Pulse() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		t.active = true
		t.emit(true)
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.expire)
}

func (t *typingTracker) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	t.emit(false)
}

// Stop ends the burst immediately, emitting stopTyping if one was active.
// Called on message send.
func (t *typingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.active {
		t.active = false
		t.emit(false)
	}
}

// Cancel drops any pending state without emitting; used on shutdown.
func (t *typingTracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.active = false
}
