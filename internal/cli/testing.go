package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and
// exit code. Args should not include "inkwell" or "--cwd" - those are added
// automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"inkwell", "--cwd", r.Dir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// ContentDir returns the path to the default content directory.
func (r *CLI) ContentDir() string {
	return filepath.Join(r.Dir, "content")
}

// WriteContent writes a markdown file under the content directory, creating
// intermediate directories as needed.
func (r *CLI) WriteContent(relPath, content string) {
	r.t.Helper()

	path := filepath.Join(r.ContentDir(), filepath.FromSlash(relPath))

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		r.t.Fatalf("failed to create dir for %s: %v", relPath, err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write content file %s: %v", relPath, err)
	}
}

// RemoveContent deletes a markdown file under the content directory.
func (r *CLI) RemoveContent(relPath string) {
	r.t.Helper()

	err := os.Remove(filepath.Join(r.ContentDir(), filepath.FromSlash(relPath)))
	if err != nil {
		r.t.Fatalf("failed to remove content file %s: %v", relPath, err)
	}
}

// ReadManifest reads the default manifest file.
func (r *CLI) ReadManifest() string {
	r.t.Helper()

	path := filepath.Join(r.ContentDir(), ".inkwell", "manifest.json")

	content, err := os.ReadFile(path)
	if err != nil {
		r.t.Fatalf("failed to read manifest: %v", err)
	}

	return string(content)
}

// ReadReport reads the default report file.
func (r *CLI) ReadReport() string {
	r.t.Helper()

	path := filepath.Join(r.ContentDir(), ".inkwell", "report.json")

	content, err := os.ReadFile(path)
	if err != nil {
		r.t.Fatalf("failed to read report: %v", err)
	}

	return string(content)
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
