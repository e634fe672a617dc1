package github

import "testing"

func TestTokenManagerRotatesUntilExhausted(t *testing.T) {
	tm := NewTokenManager([]string{"a", "b", "c"})
	if got := tm.Current(); got != "a" {
		t.Fatalf("current=%q want a", got)
	}
	if !tm.Rotate("a") || tm.Current() != "b" {
		t.Fatalf("expected rotation to b, got %q", tm.Current())
	}
	if !tm.Rotate("b") || tm.Current() != "c" {
		t.Fatalf("expected rotation to c, got %q", tm.Current())
	}
	if tm.Rotate("c") {
		t.Fatalf("expected exhaustion after every token was limited")
	}
}

func TestTokenManagerResetClearsLimitCount(t *testing.T) {
	tm := NewTokenManager([]string{"a", "b"})
	tm.Rotate("a")
	tm.Reset()
	if !tm.Rotate("b") {
		t.Fatalf("expected rotation after reset")
	}
	if tm.Current() != "a" {
		t.Fatalf("current=%q want a", tm.Current())
	}
}

func TestTokenManagerIgnoresStaleToken(t *testing.T) {
	tm := NewTokenManager([]string{"a", "b"})
	tm.Rotate("a")
	if !tm.Rotate("a") {
		t.Fatalf("stale rotation should not exhaust")
	}
	if tm.Current() != "b" {
		t.Fatalf("current=%q want b", tm.Current())
	}
}
