package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// newClockedLimiter returns a limiter whose clock is advanced by the caller.
func newClockedLimiter(rps float64, burst int) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rps, burst)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now
	return rl, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("burst then reject", func(t *testing.T) {
		rl, _ := newClockedLimiter(1, 3)
		for i := 0; i < 3; i++ {
			if !rl.allow("10.0.0.1") {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		if rl.allow("10.0.0.1") {
			t.Error("expected fourth request to be rejected")
		}
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		rl, now := newClockedLimiter(2, 1)
		if !rl.allow("10.0.0.1") {
			t.Fatal("first request should be allowed")
		}
		if rl.allow("10.0.0.1") {
			t.Fatal("second request should be rejected")
		}
		*now = now.Add(500 * time.Millisecond)
		if !rl.allow("10.0.0.1") {
			t.Error("expected a token after refill")
		}
	})

	t.Run("ips are independent", func(t *testing.T) {
		rl, _ := newClockedLimiter(1, 1)
		rl.allow("10.0.0.1")
		if !rl.allow("10.0.0.2") {
			t.Error("second ip should have its own bucket")
		}
	})

	t.Run("idle visitors are swept", func(t *testing.T) {
		rl, now := newClockedLimiter(1, 1)
		rl.allow("10.0.0.1")
		*now = now.Add(visitorTTL + sweepInterval)
		rl.allow("10.0.0.2")

		if _, ok := rl.visitors["10.0.0.1"]; ok {
			t.Error("expected idle visitor to be removed")
		}
		if _, ok := rl.visitors["10.0.0.2"]; !ok {
			t.Error("expected active visitor to be kept")
		}
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	newEcho := func(rps float64, burst int) *echo.Echo {
		e := echo.New()
		rl := NewRateLimiter(rps, burst)
		e.POST("/upload", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, rl.Middleware())
		return e
	}

	t.Run("returns 429 with json envelope", func(t *testing.T) {
		e := newEcho(0.001, 1)

		first := httptest.NewRecorder()
		e.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/upload", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		e.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/upload", nil))
		assertFailure(t, second, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		e := newEcho(0, 0)
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
			}
		}
	})
}
