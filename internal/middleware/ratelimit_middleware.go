package middleware

import (
	"sync"
	"time"
)

// Rate limiter ONLY for failed signature verification
type InvalidSignatureThrottle struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

func NewInvalidSignatureThrottle() *InvalidSignatureThrottle {
	t := &InvalidSignatureThrottle{
		attempts: make(map[string]*attemptInfo),
	}
	go t.cleanup()
	return t
}

// Allow checks if IP can make another failed attempt
// Limit: 5 failures per minute, then cooldown until the window expires
func (t *InvalidSignatureThrottle) Allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	info, exists := t.attempts[ip]
	if !exists {
		t.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	// Reset if window expired
	if now.Sub(info.firstAt) > time.Minute {
		t.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	if info.count >= 5 {
		return false
	}
	info.count++
	return true
}

func (t *InvalidSignatureThrottle) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		t.mu.Lock()
		now := time.Now()
		for ip, info := range t.attempts {
			if now.Sub(info.firstAt) > time.Minute {
				delete(t.attempts, ip)
			}
		}
		t.mu.Unlock()
	}
}
