package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFetchCachesWithinTTL(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	c.SetNow(func() time.Time { return now })
	ctx := context.Background()

	calls := 0
	fetcher := func(context.Context) (string, error) {
		calls++
		return fmt.Sprintf("payload-%d", calls), nil
	}

	res, err := Fetch(ctx, c, "weather", 15*time.Minute, fetcher)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Payload != "payload-1" || res.Stale {
		t.Errorf("Unexpected first result: %+v", res)
	}

	// Inside the TTL: cached, no second call
	now = now.Add(10 * time.Minute)
	res, err = Fetch(ctx, c, "weather", 15*time.Minute, fetcher)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Payload != "payload-1" {
		t.Errorf("Expected cached payload, got %q", res.Payload)
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls)
	}

	// Past the TTL: refetched
	now = now.Add(10 * time.Minute)
	res, err = Fetch(ctx, c, "weather", 15*time.Minute, fetcher)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Payload != "payload-2" || calls != 2 {
		t.Errorf("Expected refetch, got %q after %d calls", res.Payload, calls)
	}
}

func TestFetchServesStaleOnFailure(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	c.SetNow(func() time.Time { return now })
	ctx := context.Background()

	healthy := true
	fetcher := func(context.Context) (string, error) {
		if !healthy {
			return "", errors.New("connection refused")
		}
		return "fresh", nil
	}

	if _, err := Fetch(ctx, c, "calendar", 2*time.Minute, fetcher); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// TTL expires, upstream goes down: stale data comes back, no error
	healthy = false
	now = now.Add(time.Hour)
	res, err := Fetch(ctx, c, "calendar", 2*time.Minute, fetcher)
	if err != nil {
		t.Fatalf("Expected stale fallback, got error: %v", err)
	}
	if res.Payload != "fresh" || !res.Stale {
		t.Errorf("Expected stale payload, got %+v", res)
	}
	if res.FetchedAt != now.Add(-time.Hour) {
		t.Errorf("Expected original fetch time, got %v", res.FetchedAt)
	}

	// Recovery overwrites
	healthy = true
	res, err = Fetch(ctx, c, "calendar", 2*time.Minute, fetcher)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Stale {
		t.Error("Expected fresh result after recovery")
	}
}

func TestFetchFailureWithoutCacheErrors(t *testing.T) {
	c := NewCache()
	boom := errors.New("upstream down")
	_, err := Fetch(context.Background(), c, "mail", time.Minute,
		func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Expected fetch error with empty cache, got %v", err)
	}
}

func TestFetchUnauthenticatedNeverServedStale(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	c.SetNow(func() time.Time { return now })
	ctx := context.Background()

	authed := true
	fetcher := func(context.Context) (string, error) {
		if !authed {
			return "", fmt.Errorf("calendar: %w", ErrUnauthenticated)
		}
		return "events", nil
	}

	if _, err := Fetch(ctx, c, "calendar", 2*time.Minute, fetcher); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Token expires: the error propagates even though cached data exists
	authed = false
	now = now.Add(time.Hour)
	_, err := Fetch(ctx, c, "calendar", 2*time.Minute, fetcher)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected unauthenticated error, got %v", err)
	}
}

func TestFetchKeysAreIndependent(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	a, err := Fetch(ctx, c, "a", time.Minute, func(context.Context) (string, error) { return "alpha", nil })
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	b, err := Fetch(ctx, c, "b", time.Minute, func(context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if a.Payload != "alpha" || b.Payload != 42 {
		t.Errorf("Keys interfered: %v %v", a.Payload, b.Payload)
	}
}
