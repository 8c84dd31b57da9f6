package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	reelconfig "github.com/pithecene-io/reel/cli/config"
)

// Precedence for every transcode setting: an explicitly set flag, then a
// non-zero config file value, then the flag default.

func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}

func resolveFloat(c *cli.Context, name string, cfgVal float64) float64 {
	if c.IsSet(name) {
		return c.Float64(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Float64(name)
}

// resolveBool lets a config true enable a flag that was not given. A
// config file cannot force a flag off.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// configVal reads a field from an optional config file.
func configVal[T any](cfg *reelconfig.Config, get func(*reelconfig.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}
