package config

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

const minSecretLength = 32

// Config is built once at start and handed to every component that needs it.
// Nothing reads the environment after Load returns.
type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	AccessTokenKey  string
	RefreshTokenKey string
	CSRFKey         []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool

	CaptchaSecret    string
	CaptchaVerifyURL string
	CaptchaTimeout   time.Duration

	DatabaseDriver string
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MongoURI       string
	MongoDatabase  string

	CORSOrigins      []string
	TrustedProxies   []netip.Prefix
	RateLimitRPM     int
	AuthRateLimitRPM int

	SeedAdminEmail    string
	SeedAdminPassword string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	csrfKey, err := parseCSRFKey(strings.TrimSpace(os.Getenv("CSRF_TOKEN_KEY")))
	if err != nil {
		return nil, err
	}

	trustedProxies, err := parseTrustedProxies(splitCSV(os.Getenv("TRUSTED_PROXIES")))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		AccessTokenKey:          strings.TrimSpace(os.Getenv("LOG_TOKEN_KEY")),
		RefreshTokenKey:         strings.TrimSpace(os.Getenv("REFRESH_TOKEN_KEY")),
		CSRFKey:                 csrfKey,
		AccessTokenTTL:          getDuration("ACCESS_TOKEN_TTL", 10*time.Minute),
		RefreshTokenTTL:         getDuration("REFRESH_TOKEN_TTL", 365*24*time.Hour),
		CookieSecure:            getBool("COOKIE_SECURE", true),
		CaptchaSecret:           strings.TrimSpace(os.Getenv("CAPTCHA_TOKEN_KEY")),
		CaptchaVerifyURL:        getEnv("CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		CaptchaTimeout:          getDuration("CAPTCHA_TIMEOUT", 5*time.Second),
		DatabaseDriver:          strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		MongoURI:                getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:           getEnv("MONGO_DATABASE", "marketplates"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		TrustedProxies:          trustedProxies,
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		SeedAdminEmail:          strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")),
		SeedAdminPassword:       strings.TrimSpace(os.Getenv("SEED_ADMIN_PASSWORD")),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "pretty"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.AccessTokenKey) < minSecretLength {
		return fmt.Errorf("LOG_TOKEN_KEY must be at least %d characters", minSecretLength)
	}

	if len(c.RefreshTokenKey) < minSecretLength {
		return fmt.Errorf("REFRESH_TOKEN_KEY must be at least %d characters", minSecretLength)
	}

	if c.AccessTokenKey == c.RefreshTokenKey {
		return fmt.Errorf("LOG_TOKEN_KEY and REFRESH_TOKEN_KEY must differ")
	}

	if len(c.CSRFKey) != 32 {
		return fmt.Errorf("CSRF_TOKEN_KEY must decode to 32 bytes")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together")
	}

	return nil
}

// CaptchaEnabled reports whether login requests must carry a verified captcha.
func (c *Config) CaptchaEnabled() bool {
	return c.CaptchaSecret != ""
}

// parseCSRFKey accepts either 32 raw characters or 64 hex digits.
func parseCSRFKey(raw string) ([]byte, error) {
	switch len(raw) {
	case 32:
		return []byte(raw), nil
	case 64:
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("CSRF_TOKEN_KEY is not valid hex: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("CSRF_TOKEN_KEY must be 32 characters or 64 hex digits")
	}
}

// parseTrustedProxies accepts CIDR prefixes or bare addresses.
func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an address or CIDR", entry)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return out, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
