package config

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("LOG_TOKEN_KEY", strings.Repeat("a", 40))
	t.Setenv("REFRESH_TOKEN_KEY", strings.Repeat("b", 40))
	t.Setenv("CSRF_TOKEN_KEY", strings.Repeat("c", 32))
	t.Setenv("DATABASE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, 10*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 365*24*time.Hour, cfg.RefreshTokenTTL)
	require.Len(t, cfg.CSRFKey, 32)
	require.True(t, cfg.CookieSecure)
	require.False(t, cfg.CaptchaEnabled())
	require.Equal(t, DriverMemory, cfg.DatabaseDriver)
}

func TestLoadHexCSRFKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CSRF_TOKEN_KEY", strings.Repeat("0f", 32))

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.CSRFKey, 32)
	require.Equal(t, byte(0x0f), cfg.CSRFKey[0])
}

func TestLoadRejectsBadSecrets(t *testing.T) {
	t.Run("short access key", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("LOG_TOKEN_KEY", "short")

		_, err := Load()
		require.ErrorContains(t, err, "LOG_TOKEN_KEY")
	})

	t.Run("shared access and refresh key", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("REFRESH_TOKEN_KEY", strings.Repeat("a", 40))

		_, err := Load()
		require.ErrorContains(t, err, "must differ")
	})

	t.Run("csrf key of wrong length", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CSRF_TOKEN_KEY", "too-short")

		_, err := Load()
		require.ErrorContains(t, err, "CSRF_TOKEN_KEY")
	})

	t.Run("postgres without url", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DATABASE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("malformed trusted proxy", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")

		_, err := Load()
		require.ErrorContains(t, err, "TRUSTED_PROXIES")
	})

	t.Run("half configured admin seed", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SEED_ADMIN_EMAIL", "admin@example.com")

		_, err := Load()
		require.ErrorContains(t, err, "SEED_ADMIN")
	})
}

func TestLoadTrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.10/32"),
	}, cfg.TrustedProxies)
}

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b "))
	require.Nil(t, splitCSV("  "))
}
