package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(config *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(config)
	limiter.now = clock.Now
	return limiter, clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	defer limiter.Stop()

	clientID := "127.0.0.1"
	endpoint := "/resume-analyses"
	method := "GET"

	// Should allow requests up to limit
	for i := 0; i < 10; i++ {
		allowed, rateInfo := limiter.Allow(clientID, endpoint, method)
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", rateInfo.Limit)
		}
		if rateInfo.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, rateInfo.Remaining)
		}
	}

	// 11th request should be denied
	allowed, rateInfo := limiter.Allow(clientID, endpoint, method)
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if rateInfo.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", rateInfo.Remaining)
	}
	if rateInfo.RetryAfter <= 0 {
		t.Error("Expected retry after to be positive")
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: 2 * time.Second, // one token per second
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c", "/x", "GET"); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/x", "GET"); allowed {
		t.Fatal("Expected bucket to be empty")
	}

	clock.Advance(1100 * time.Millisecond)
	if allowed, _ := limiter.Allow("c", "/x", "GET"); !allowed {
		t.Error("Expected a token to be refilled after one second")
	}
}

func TestLimiter_ResetTime(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: 10 * time.Second,
	})
	defer limiter.Stop()

	_, info := limiter.Allow("c", "/x", "GET")
	if !info.ResetTime.After(clock.Now()) {
		t.Error("Reset time should be in the future after consuming a token")
	}
	if info.ResetTime.Sub(clock.Now()) > 2*time.Second {
		t.Errorf("Reset time too far out: %v", info.ResetTime.Sub(clock.Now()))
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})
	defer limiter.Stop()

	// Whitelisted IP should always be allowed
	for i := 0; i < 100; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/test", "GET")
		if !allowed {
			t.Errorf("Expected whitelisted request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 for whitelisted, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("192.168.1.1", "/test", "GET")
	if allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, rateInfo := limiter.Allow("127.0.0.1", "/test", "GET")
		if !allowed {
			t.Errorf("Expected request %d to be allowed when disabled", i+1)
		}
		if rateInfo.Limit != 0 {
			t.Errorf("Expected limit 0 when disabled, got %d", rateInfo.Limit)
		}
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/resume-analyses", Method: "POST", Limit: 5, Window: time.Hour, Burst: 5},
		},
	})
	defer limiter.Stop()

	clientID := "127.0.0.1"

	for i := 0; i < 5; i++ {
		allowed, rateInfo := limiter.Allow(clientID, "/resume-analyses", "POST")
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if rateInfo.Limit != 5 {
			t.Errorf("Expected limit 5, got %d", rateInfo.Limit)
		}
	}

	allowed, rateInfo := limiter.Allow(clientID, "/resume-analyses", "POST")
	if allowed {
		t.Error("Expected 6th request to be denied")
	}
	if rateInfo.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", rateInfo.Limit)
	}

	// Listing falls back to the default limit
	allowed, rateInfo = limiter.Allow(clientID, "/resume-analyses", "GET")
	if !allowed {
		t.Error("Expected GET to be allowed under the default limit")
	}
	if rateInfo.Limit != 1000 {
		t.Errorf("Expected default limit 1000, got %d", rateInfo.Limit)
	}
}

func TestLimiter_PatternRoutesShareBucket(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/resume-analyses/{id}/pdf", Method: "GET", Limit: 2, Window: time.Hour, Burst: 2},
		},
	})
	defer limiter.Stop()

	// Different ids count against one pdf bucket
	for i, id := range []string{"a", "b"} {
		if allowed, _ := limiter.Allow("c", "/resume-analyses/"+id+"/pdf", "GET"); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/resume-analyses/c/pdf", "GET"); allowed {
		t.Error("Expected third pdf export to be denied")
	}

	// A different client has its own bucket
	if allowed, _ := limiter.Allow("other", "/resume-analyses/a/pdf", "GET"); !allowed {
		t.Error("Expected other client to be allowed")
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
	})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		if allowed, _ := limiter.Allow("c", "/health", "GET"); !allowed {
			t.Fatalf("Expected health request %d to be allowed", i+1)
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Hour,
	})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := limiter.Allow("127.0.0.1", "/test", "GET")
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected exactly 100 allowed requests, got %d", allowedCount)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i), "/test", "GET")
	}
	if got := limiter.bucketCount(); got != 5 {
		t.Fatalf("Expected 5 buckets, got %d", got)
	}

	clock.Advance(30 * time.Second)
	limiter.Allow("client-0", "/test", "GET")
	clock.Advance(45 * time.Second)
	limiter.cleanupBuckets()

	if got := limiter.bucketCount(); got != 1 {
		t.Errorf("Expected only the recently used bucket to remain, got %d", got)
	}
}

func TestLimiter_Burst(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		},
	})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if allowed, _ := limiter.Allow("c", "/auth/login", "POST"); !allowed {
			t.Errorf("Expected burst request %d to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/auth/login", "POST"); allowed {
		t.Error("Expected request beyond burst to be denied")
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Second, CleanupInterval: time.Minute})
	limiter.Stop()
	limiter.Stop()
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/test", "GET")
	if !allowed {
		t.Error("Expected request to be allowed with default config")
	}
	if info.Limit != 1000 {
		t.Errorf("Expected default limit 1000, got %d", info.Limit)
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantPath  string
		wantLimit int
		wantNil   bool
	}{
		{name: "health unlimited", path: "/health", method: "GET", wantLimit: 0},
		{name: "upload exact", path: "/resume-analyses", method: "POST", wantPath: "/resume-analyses", wantLimit: 20},
		{name: "pdf pattern", path: "/resume-analyses/123/pdf", method: "GET", wantPath: "/resume-analyses/{id}/pdf", wantLimit: 30},
		{name: "rewrite edit", path: "/resume-analyses/123/rewrite-markdown", method: "PUT", wantPath: "/resume-analyses/{id}/rewrite-markdown", wantLimit: 60},
		{name: "delete prefix", path: "/resume-analyses/123", method: "DELETE", wantPath: "/resume-analyses/", wantLimit: 60},
		{name: "login", path: "/auth/login", method: "POST", wantPath: "/auth/login", wantLimit: 20},
		{name: "detail falls through", path: "/resume-analyses/123", method: "GET", wantNil: true},
		{name: "pattern needs segment", path: "/resume-analyses//pdf", method: "GET", wantNil: true},
		{name: "method mismatch", path: "/auth/login", method: "GET", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Expected no match, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a match")
			}
			if got.Path != tt.wantPath || got.Limit != tt.wantLimit {
				t.Errorf("got path=%q limit=%d, want path=%q limit=%d", got.Path, got.Limit, tt.wantPath, tt.wantLimit)
			}
		})
	}
}

func TestLoadConfig_Disabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if cfg := LoadConfig(); cfg.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}
}

func TestLoadConfig_Lists(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")

	cfg := LoadConfig()
	if cfg.DefaultLimit != 50 {
		t.Errorf("Expected default limit 50, got %d", cfg.DefaultLimit)
	}
	if !cfg.Whitelist["10.0.0.1"] || !cfg.Whitelist["10.0.0.2"] {
		t.Errorf("Expected both whitelist entries, got %v", cfg.Whitelist)
	}
	if len(cfg.EndpointConfigs) == 0 {
		t.Error("Expected default endpoint configs")
	}
}

func TestLoadConfig_ExpensiveRouteOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_ANALYSIS_LIMIT", "5")
	t.Setenv("RATE_LIMIT_ANALYSIS_WINDOW", "24h")
	t.Setenv("RATE_LIMIT_EXPORT_LIMIT", "not-a-number")

	cfg := LoadConfig()

	upload := MatchEndpoint("/resume-analyses", "POST", cfg.EndpointConfigs)
	if upload == nil || upload.Limit != 5 || upload.Window != 24*time.Hour {
		t.Fatalf("Expected upload override 5/24h, got %+v", upload)
	}
	export := MatchEndpoint("/resume-analyses/abc/pdf", "GET", cfg.EndpointConfigs)
	if export == nil || export.Limit != defaultExportLimit {
		t.Fatalf("Expected export default %d, got %+v", defaultExportLimit, export)
	}
}

func TestParseIPList(t *testing.T) {
	got := parseIPList(" 10.0.0.1,,10.0.0.2 ,")
	if len(got) != 2 || !got["10.0.0.1"] || !got["10.0.0.2"] {
		t.Errorf("unexpected set %v", got)
	}
	if len(parseIPList("")) != 0 {
		t.Error("Expected empty set")
	}
}
