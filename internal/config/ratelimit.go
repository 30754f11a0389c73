package config

import "time"

// RateLimitConfig describes one Redis token bucket. The env-backed value
// is the global default; AdminLimit and SensitiveLimit derive the tighter
// buckets applied to the admin API.
type RateLimitConfig struct {
    Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
    Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"60"`
    RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
    RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"1s"`
    TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
    KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"ip_user_route"`
    Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"rl"`
    Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`
}

// Window returns a copy that allows n requests per window, refilled in one
// step when the window elapses.
func (c RateLimitConfig) Window(prefix string, n int, window time.Duration) RateLimitConfig {
    out := c
    out.Prefix = c.Prefix + ":" + prefix
    out.Capacity = n
    out.RefillTokens = n
    out.RefillInterval = window
    out.TTL = 0
    out.KeyStrategy = "ip"
    out.normalize()
    return out
}

// AdminLimit is 100 requests per 15 minutes per client IP.
func (c RateLimitConfig) AdminLimit() RateLimitConfig {
    return c.Window("admin", 100, 15*time.Minute)
}

// SensitiveLimit is 20 requests per hour per client IP.
func (c RateLimitConfig) SensitiveLimit() RateLimitConfig {
    return c.Window("sensitive", 20, time.Hour)
}

func (c *RateLimitConfig) normalize() {
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
}
