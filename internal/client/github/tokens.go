package github

import (
	"sync"
)

// TokenManager hands out GitHub tokens round-robin. Rotate reports false once
// every token has been rate limited since the last successful call.
type TokenManager struct {
	mu      sync.Mutex
	tokens  []string
	index   int
	limited int
}

func NewTokenManager(tokens []string) *TokenManager {
	return &TokenManager{tokens: append([]string(nil), tokens...)}
}

func (tm *TokenManager) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.tokens)
}

func (tm *TokenManager) Current() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if len(tm.tokens) == 0 {
		return ""
	}
	return tm.tokens[tm.index]
}

// Rotate marks token as rate limited and advances to the next one. A stale
// token (already rotated away by a concurrent caller) does not count twice.
func (tm *TokenManager) Rotate(token string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if len(tm.tokens) == 0 {
		return false
	}
	if tm.tokens[tm.index] != token {
		return tm.limited < len(tm.tokens)
	}
	tm.limited++
	if tm.limited >= len(tm.tokens) {
		tm.limited = 0
		return false
	}
	tm.index = (tm.index + 1) % len(tm.tokens)
	return true
}

func (tm *TokenManager) Reset() {
	tm.mu.Lock()
	tm.limited = 0
	tm.mu.Unlock()
}
