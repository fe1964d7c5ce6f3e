package snapshot

import (
	"context"
	"os/exec"
	"strings"

	"github.com/bashhack/git-autosnap/internal/gitexec"
)

// gitConfigGet reads a single config key from repoRoot's git config,
// returning fallback if the key is unset or the lookup fails.
func gitConfigGet(ctx context.Context, executor gitexec.CommandExecutor, repoRoot, key, fallback string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "config", "--get", key)
	out, err := executor.ExecuteWithOutput(cmd)
	if err != nil {
		return fallback
	}
	v := strings.TrimSpace(out)
	if v == "" {
		return fallback
	}
	return v
}
