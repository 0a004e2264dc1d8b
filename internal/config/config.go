package config

import (
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"leetcode-tracker/internal/model"
)

const DefaultTokenLifetime = 7 * 24 * time.Hour

// Largest lifetimes a time.Duration can hold without wrapping.
const (
	maxLifetimeSeconds = int64(math.MaxInt64 / time.Second)
	maxLifetimeDays    = float64(math.MaxInt64/int64(24*time.Hour)) - 1
)

type Config struct {
	AppEnv                  string        `envconfig:"APP_ENV" default:"development"`
	ServerPort              string        `envconfig:"SERVER_PORT" default:"8080"`
	ServerReadHeaderTimeout time.Duration `envconfig:"SERVER_READ_HEADER_TIMEOUT" default:"10s"`
	ServerWriteTimeout      time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ServerIdleTimeout       time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	RequestTimeout          time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	JWTSecret     string   `envconfig:"JWT_SECRET"`
	JWTExpiration Lifetime `envconfig:"JWT_EXPIRATION" default:"7d"`

	// Zero means GOMAXPROCS.
	BcryptMaxConcurrency int `envconfig:"BCRYPT_MAX_CONCURRENCY" default:"0"`

	CORSOrigins      []string `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimitRPM     int      `envconfig:"RATE_LIMIT_RPM" default:"100"`
	AuthRateLimitRPM int      `envconfig:"AUTH_RATE_LIMIT_RPM" default:"10"`

	// Peers whose X-Forwarded-For is believed. IPs or CIDRs; empty trusts none.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// Empty disables the token denylist.
	RedisURL string `envconfig:"REDIS_URL"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	cfg.TrustedProxies = trimAll(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", model.ErrConfiguration)
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", model.ErrConfiguration)
	}

	if c.ServerPort == "" {
		return fmt.Errorf("%w: SERVER_PORT cannot be empty", model.ErrConfiguration)
	}

	if c.JWTExpiration.Duration() <= 0 {
		return fmt.Errorf("%w: JWT_EXPIRATION must be positive", model.ErrConfiguration)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", model.ErrConfiguration)
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("%w: DB_MIN_CONNS/DB_MAX_CONNS out of range", model.ErrConfiguration)
	}

	if c.BcryptMaxConcurrency < 0 {
		return fmt.Errorf("%w: BCRYPT_MAX_CONCURRENCY cannot be negative", model.ErrConfiguration)
	}

	if _, err := ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("%w: TRUSTED_PROXIES: %v", model.ErrConfiguration, err)
	}

	return nil
}

// TrustedProxyPrefixes returns the parsed TRUSTED_PROXIES. Entries that do
// not parse are skipped; Validate rejects them at load time.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if prefix, err := parseProxy(raw); err == nil {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}

// ParseTrustedProxies accepts single addresses ("10.0.0.1") and CIDR ranges
// ("10.0.0.0/8").
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		prefix, err := parseProxy(raw)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func parseProxy(raw string) (netip.Prefix, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid proxy range %q", raw)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid proxy address %q", raw)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Lifetime is a duration that also accepts a day suffix ("7d") and a bare
// number of seconds ("3600").
type Lifetime time.Duration

func (l *Lifetime) Decode(value string) error {
	d, err := ParseLifetime(value)
	if err != nil {
		return err
	}
	*l = Lifetime(d)
	return nil
}

func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}

func ParseLifetime(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTokenLifetime, nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if seconds > maxLifetimeSeconds || seconds < -maxLifetimeSeconds {
			return 0, fmt.Errorf("invalid lifetime %q: out of range", raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("invalid lifetime %q", raw)
		}
		if math.Abs(n) > maxLifetimeDays {
			return 0, fmt.Errorf("invalid lifetime %q: out of range", raw)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q", raw)
	}

	return d, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
