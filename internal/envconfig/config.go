// Package envconfig binds the environment variables named in spec §6 via
// viper's AutomaticEnv support, following the teacher pack's own
// viper-backed config manager (httprunner-video-downloader's
// internal/config.Manager) but flat rather than nested: spec §6's
// variables are a bare top-level set, not a YAML document.
package envconfig

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the effective process configuration, bound from the
// environment (spec §6).
type Config struct {
	Home          string
	LogLevel      string
	ChromeOnly    bool
	FirefoxOnly   bool
	RequireJWT    bool
	Verbose       bool
	Single        bool
	IgnoreExpired bool
}

// Load reads HOME, LOG_LEVEL, CHROME_ONLY, FIREFOX_ONLY, REQUIRE_JWT,
// VERBOSE, SINGLE, and IGNORE_EXPIRED from the environment (spec §6, all
// truthy=enable for the boolean flags).
func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("chrome_only", false)
	v.SetDefault("firefox_only", false)
	v.SetDefault("require_jwt", false)
	v.SetDefault("verbose", false)
	v.SetDefault("single", false)
	v.SetDefault("ignore_expired", false)

	bindEnv(v, "home", "HOME")
	bindEnv(v, "log_level", "LOG_LEVEL")
	bindEnv(v, "chrome_only", "CHROME_ONLY")
	bindEnv(v, "firefox_only", "FIREFOX_ONLY")
	bindEnv(v, "require_jwt", "REQUIRE_JWT")
	bindEnv(v, "verbose", "VERBOSE")
	bindEnv(v, "single", "SINGLE")
	bindEnv(v, "ignore_expired", "IGNORE_EXPIRED")

	return Config{
		Home:          v.GetString("home"),
		LogLevel:      v.GetString("log_level"),
		ChromeOnly:    v.GetBool("chrome_only"),
		FirefoxOnly:   v.GetBool("firefox_only"),
		RequireJWT:    v.GetBool("require_jwt"),
		Verbose:       v.GetBool("verbose"),
		Single:        v.GetBool("single"),
		IgnoreExpired: v.GetBool("ignore_expired"),
	}
}

func bindEnv(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}
