// Package appconfig resolves git-autosnap's own process-level settings
// (debug/verbose logging, repository root, log file location) the way the
// teacher resolves its own CLI config: flags and environment first, then a
// Finalize step that fills in anything still unset from the environment.
package appconfig

import (
	"os"
	"strconv"

	"github.com/bashhack/git-autosnap/internal/reposcope"
)

// Config holds the process-level settings shared by every subcommand.
type Config struct {
	// Debug enables file logging via internal/logger.
	Debug bool
	// Verbose additionally echoes warnings to stdout.
	Verbose bool

	// RepoRoot and LogFile are resolved by Finalize, not set directly by flags.
	RepoRoot string
	LogFile  string
}

// New returns a Config with defaults matching an un-flagged invocation.
func New() *Config {
	return &Config{}
}

// LoadFromEnvironment overlays GIT_AUTOSNAP_DEBUG / GIT_AUTOSNAP_VERBOSE
// onto c when the corresponding flag was left at its default, mirroring
// the teacher's own flag-then-environment precedence.
func (c *Config) LoadFromEnvironment() {
	if v := os.Getenv("GIT_AUTOSNAP_DEBUG"); v != "" && !c.Debug {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v := os.Getenv("GIT_AUTOSNAP_VERBOSE"); v != "" && !c.Verbose {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
}

// Finalize discovers the repository root from the current working
// directory and resolves the log file path beneath its sidecar store.
func (c *Config) Finalize() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	root, err := reposcope.Discover(cwd)
	if err != nil {
		return err
	}

	c.RepoRoot = root
	c.LogFile = reposcope.LogFile(root)
	return nil
}
