package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommitMessageWithoutTail(t *testing.T) {
	msg := commitMessage("main", "")
	if !strings.HasPrefix(msg, "AUTOSNAP[main] ") {
		t.Errorf("commitMessage() = %q, want AUTOSNAP[main] prefix", msg)
	}
	// The RFC3339 timestamp itself contains colons; only a ": " tail
	// separator or a dangling colon at the end would be wrong here.
	if strings.Contains(msg, ": ") || strings.HasSuffix(msg, ":") {
		t.Errorf("commitMessage() with no tail should not contain a trailing colon, got %q", msg)
	}
}

func TestCommitMessageWithTail(t *testing.T) {
	msg := commitMessage("feature/x", "before risky edit")
	if !strings.HasPrefix(msg, "AUTOSNAP[feature/x] ") {
		t.Errorf("commitMessage() = %q, want AUTOSNAP[feature/x] prefix", msg)
	}
	if !strings.HasSuffix(msg, ": before risky edit") {
		t.Errorf("commitMessage() = %q, want a trailing tail clause", msg)
	}
}

func TestParseLogLine(t *testing.T) {
	line := strings.Join([]string{
		"abc123full",
		"abc123",
		"2024-01-02T15:04:05-07:00",
		"AUTOSNAP[main] 2024-01-02T15:04:05-07:00",
	}, logFieldSep)

	snap, err := parseLogLine(line)
	if err != nil {
		t.Fatalf("parseLogLine() failed: %v", err)
	}
	if snap.Hash != "abc123full" || snap.ShortHash != "abc123" {
		t.Errorf("parseLogLine() hashes = %q/%q", snap.Hash, snap.ShortHash)
	}
	if snap.Subject != "AUTOSNAP[main] 2024-01-02T15:04:05-07:00" {
		t.Errorf("parseLogLine() Subject = %q", snap.Subject)
	}
}

func TestParseLogLineRejectsMalformedInput(t *testing.T) {
	if _, err := parseLogLine("too-few-fields"); err == nil {
		t.Error("expected an error for a line missing the field separator")
	}
}

func TestParseLogLineRejectsBadTimestamp(t *testing.T) {
	line := strings.Join([]string{"h", "sh", "not-a-timestamp", "subj"}, logFieldSep)
	if _, err := parseLogLine(line); err == nil {
		t.Error("expected an error for a malformed commit timestamp")
	}
}

func TestIsSkippedComponent(t *testing.T) {
	cases := map[string]bool{
		".git":                 true,
		".autosnap":            true,
		filepath.Join(".git", "HEAD"):        true,
		filepath.Join("a", ".autosnap", "x"): true,
		"src/main.go":          false,
		"README.md":            false,
	}
	for rel, want := range cases {
		if got := isSkippedComponent(rel); got != want {
			t.Errorf("isSkippedComponent(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestInScopeWithEmptyScopeMatchesEverything(t *testing.T) {
	if !inScope("any/path.go", nil) {
		t.Error("inScope with an empty scope should match everything")
	}
}

func TestInScopeRestrictsToPathspec(t *testing.T) {
	scope := []string{"src"}
	if !inScope(filepath.Join("src", "main.go"), scope) {
		t.Error("expected a file under the scoped directory to be in scope")
	}
	if inScope(filepath.Join("docs", "x.md"), scope) {
		t.Error("expected a file outside the scoped directory to not be in scope")
	}
	if !inScope("src", scope) {
		t.Error("expected the scope path itself to be in scope")
	}
}

func TestPruneEmptyDirsRemovesOnlyEmptyAncestors(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	pruneEmptyDirs(root, []string{filepath.Join("a", "b", "gone.txt")})

	if _, err := os.Stat(nested); !os.IsNotExist(err) {
		t.Errorf("expected emptied directory %q to be pruned, stat err = %v", nested, err)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); err != nil {
		t.Errorf("expected non-empty ancestor %q to survive pruning: %v", filepath.Join(root, "a"), err)
	}
}
