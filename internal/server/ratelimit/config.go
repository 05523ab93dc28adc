package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig overrides the default bucket for one route.
type EndpointConfig struct {
	// Path is an exact path, a pattern with {param} segments, or a prefix ending in "/".
	Path   string
	Method string
	Limit  int
	Window time.Duration
	// Burst defaults to Limit when zero.
	Burst int
}

// Per-client quotas on the expensive routes. Each upload costs an AI call and
// each export starts a browser.
const (
	defaultAnalysisLimit  = 20
	defaultAnalysisWindow = time.Hour
	defaultExportLimit    = 30
	defaultExportWindow   = time.Hour
)

// LoadConfig reads RATE_LIMIT_* variables. Malformed values fall back to defaults.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	endpoints := DefaultEndpointConfigs()
	for i := range endpoints {
		switch {
		case endpoints[i].Path == "/resume-analyses" && endpoints[i].Method == "POST":
			endpoints[i].Limit = envInt("RATE_LIMIT_ANALYSIS_LIMIT", endpoints[i].Limit)
			endpoints[i].Window = envDuration("RATE_LIMIT_ANALYSIS_WINDOW", endpoints[i].Window)
		case strings.HasSuffix(endpoints[i].Path, "/pdf"):
			endpoints[i].Limit = envInt("RATE_LIMIT_EXPORT_LIMIT", endpoints[i].Limit)
			endpoints[i].Window = envDuration("RATE_LIMIT_EXPORT_WINDOW", endpoints[i].Window)
		}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: endpoints,
	}
}

// DefaultEndpointConfigs returns the route overrides. /health is never limited
// and everything else shares the default bucket.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/resume-analyses", Method: "POST", Limit: defaultAnalysisLimit, Window: defaultAnalysisWindow, Burst: 3},
		{Path: "/resume-analyses/{id}/pdf", Method: "GET", Limit: defaultExportLimit, Window: defaultExportWindow, Burst: 5},

		{Path: "/auth/register", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/auth/login", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/resume-analyses/{id}/rewrite-markdown", Method: "PUT", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/resume-analyses/", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

// parseIPList turns "a, b" into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
