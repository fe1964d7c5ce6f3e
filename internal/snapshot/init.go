package snapshot

import (
	"context"

	"github.com/bashhack/git-autosnap/internal/reposcope"
)

// Init creates the sidecar bare repository if it doesn't already exist and
// registers it in .git/info/exclude so the primary VCS never reports it.
// Init is idempotent: calling it again on an existing sidecar is a no-op
// beyond re-checking the exclude entry.
func (e *Engine) Init(ctx context.Context) error {
	if err := reposcope.InitSidecar(ctx, e.RepoRoot, e.Executor); err != nil {
		return err
	}
	e.Log.Info("sidecar store ready at %s", e.GitDir)
	return nil
}
