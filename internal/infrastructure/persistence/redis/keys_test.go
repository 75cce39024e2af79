package redis

import "testing"

func TestBuildKeys(t *testing.T) {
	if got := BuildGenerationLockKey("book_1", "ch_002"); got != "book-engine:genlock:book_1:ch_002" {
		t.Fatalf("lock key = %q", got)
	}
	if got := BuildRateLimitKey("10.0.0.1", "/v1/books"); got != "book-engine:ratelimit:10.0.0.1:/v1/books" {
		t.Fatalf("rate limit key = %q", got)
	}
}

func TestNewGenerationLockerDefaultTTL(t *testing.T) {
	l := NewGenerationLocker(nil, 0)
	if l.ttl <= 0 {
		t.Fatalf("ttl = %s", l.ttl)
	}
}
