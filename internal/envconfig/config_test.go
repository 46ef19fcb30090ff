package envconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// unsetEnv clears an environment variable for the duration of the test,
// restoring whatever value (or absence) it had before.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "CHROME_ONLY", "FIREFOX_ONLY", "REQUIRE_JWT", "VERBOSE", "SINGLE", "IGNORE_EXPIRED"} {
		unsetEnv(t, key)
	}

	cfg := Load()
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.ChromeOnly)
	require.False(t, cfg.FirefoxOnly)
	require.False(t, cfg.RequireJWT)
	require.False(t, cfg.Verbose)
	require.False(t, cfg.Single)
	require.False(t, cfg.IgnoreExpired)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CHROME_ONLY", "true")
	t.Setenv("FIREFOX_ONLY", "false")
	t.Setenv("REQUIRE_JWT", "1")
	t.Setenv("SINGLE", "true")

	cfg := Load()
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.ChromeOnly)
	require.False(t, cfg.FirefoxOnly)
	require.True(t, cfg.RequireJWT)
	require.True(t, cfg.Single)
}

func TestLoadReadsHomeFromEnvironment(t *testing.T) {
	t.Setenv("HOME", "/tmp/fake-home")
	cfg := Load()
	require.Equal(t, "/tmp/fake-home", cfg.Home)
}
