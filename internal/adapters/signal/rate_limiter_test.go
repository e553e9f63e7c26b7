package signal

import (
	"testing"
	"time"
)

func TestChatRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewChatRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if rl.Allow("a") {
		t.Error("message over the burst limit should be dropped")
	}
}

func TestChatRateLimiter_PerSession(t *testing.T) {
	rl := NewChatRateLimiter(1, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first message from a should pass")
	}
	if !rl.Allow("b") {
		t.Error("b must not be throttled by a's history")
	}
}

func TestChatRateLimiter_WindowSlides(t *testing.T) {
	rl := NewChatRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first message should pass")
	}
	if rl.Allow("a") {
		t.Fatal("second message inside the window should be dropped")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("message after the window should pass again")
	}
}

func TestChatRateLimiter_Forget(t *testing.T) {
	rl := NewChatRateLimiter(1, time.Minute)
	rl.Allow("a")
	rl.Forget("a")
	if !rl.Allow("a") {
		t.Error("Forget should reset the session's history")
	}
}
