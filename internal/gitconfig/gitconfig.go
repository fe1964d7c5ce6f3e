// Package gitconfig resolves git-autosnap's own tunables
// (autosnap.debounce-ms, autosnap.gc.prune-days) through the host git
// binary's own config resolution (local -> global -> system), rather than
// parsing .gitconfig files in-process.
package gitconfig

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bashhack/git-autosnap/internal/gitexec"
)

const (
	// DefaultDebounceMS is used when autosnap.debounce-ms is unset or invalid.
	DefaultDebounceMS = 1000
	// DefaultPruneDays is used when autosnap.gc.prune-days is unset or invalid.
	DefaultPruneDays = 60
)

// Config holds the autosnap-specific git configuration values.
type Config struct {
	DebounceMS int
	PruneDays  int
}

// Default returns the built-in defaults, used when no repository config
// overrides them.
func Default() Config {
	return Config{DebounceMS: DefaultDebounceMS, PruneDays: DefaultPruneDays}
}

// Read resolves autosnap.* config keys for repoRoot using "git -C repoRoot
// config --get <key>", which already applies git's own
// local -> global -> system precedence. Missing or malformed values fall
// back to their defaults rather than failing the caller.
func Read(ctx context.Context, repoRoot string, executor gitexec.CommandExecutor) Config {
	cfg := Default()

	if v, ok := get(ctx, repoRoot, executor, "autosnap.debounce-ms"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DebounceMS = n
		}
	}
	if v, ok := get(ctx, repoRoot, executor, "autosnap.gc.prune-days"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PruneDays = n
		}
	}

	return cfg
}

func get(ctx context.Context, repoRoot string, executor gitexec.CommandExecutor, key string) (string, bool) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "config", "--get", key)
	out, err := executor.ExecuteWithOutput(cmd)
	if err != nil {
		// git config --get exits non-zero when the key is simply unset;
		// that's the common case, not a failure worth reporting.
		return "", false
	}
	return strings.TrimSpace(out), true
}
