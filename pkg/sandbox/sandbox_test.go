package sandbox

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T, opts ...Option) *Sandbox {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	opts = append([]Option{WithRoot(t.TempDir() + "/sandbox")}, opts...)
	s := New(opts...)
	require.NoError(t, s.Initialize(t.Context()))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestInitializeIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.Initialize(t.Context()))
	require.NoError(t, s.Initialize(t.Context()))

	res := s.Exec(t.Context(), "status --short")
	assert.True(t, res.Success)
	assert.Empty(t, res.Stdout, "a fresh repository has a clean status")
}

func TestInitializeMissingBinary(t *testing.T) {
	t.Parallel()

	s := New(
		WithRoot(t.TempDir()+"/sandbox"),
		WithGitBinary("definitely-not-a-git-binary"),
	)

	err := s.Initialize(t.Context())
	require.Error(t, err)

	var setupErr *SetupError
	assert.ErrorAs(t, err, &setupErr)
}

func TestCreateFileReadFileRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.CreateFile("notes/a.txt", "hello"))

	content, found, err := s.ReadFile("notes/a.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", content)
}

func TestCreateFileOverwrites(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.CreateFile("a.txt", "first"))
	require.NoError(t, s.CreateFile("a.txt", "second"))

	content, found, err := s.ReadFile("a.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", content)
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	content, found, err := s.ReadFile("never-created.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, content)
}

func TestPathContainment(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	err := s.CreateFile("/etc/passwd", "nope")
	assert.ErrorIs(t, err, ErrEscapesRoot)

	err = s.CreateFile("", "nope")
	assert.ErrorIs(t, err, ErrEscapesRoot)

	// Traversal components are resolved inside the root, not outside it.
	require.NoError(t, s.CreateFile("../escape.txt", "contained"))
	content, found, err := s.ReadFile("escape.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "contained", content)
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.CreateFile("b.txt", "b"))
	require.NoError(t, s.CreateFile("a.txt", "a"))
	require.NoError(t, s.CreateFile("src/main.go", "package main"))

	files, err := s.ListFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "src/main.go"}, files,
		"paths are relative, sorted, and exclude .git")

	files, err = s.ListFiles("**/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, files)
}

func TestExecInvalidSubcommand(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	res := s.Exec(t.Context(), "not-a-subcommand")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Stderr)
}

func TestExecUnbalancedQuotes(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	res := s.Exec(t.Context(), `commit -m "unterminated`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "invalid command")
}

func TestExecTimeout(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep binary not available")
	}

	// Abuse the git binary option to run a command that outlives the timeout.
	s := New(
		WithRoot(t.TempDir()+"/sandbox"),
		WithGitBinary("sleep"),
		WithCommandTimeout(50*time.Millisecond),
	)
	require.NoError(t, os.MkdirAll(s.Root(), 0o755))

	res := s.Exec(t.Context(), "10")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestCommitWorkflow(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.CreateFile("a.txt", "hello"))

	res := s.Exec(t.Context(), "add a.txt")
	require.True(t, res.Success, "stderr: %s", res.Stderr)

	res = s.Exec(t.Context(), `commit -m "first"`)
	require.True(t, res.Success, "stderr: %s", res.Stderr)

	log := s.Log(t.Context(), 1)
	require.NotEmpty(t, log)
	assert.Contains(t, log, "first")
	assert.NotContains(t, log, "\n", "a single oneline entry")
}

func TestCommitNothingStaged(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	res := s.Exec(t.Context(), `commit -m "x"`)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Stdout+res.Stderr, "git explains there is nothing to commit")
}

func TestReset(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)

	require.NoError(t, s.CreateFile("a.txt", "hello"))
	res := s.Exec(t.Context(), "add .")
	require.True(t, res.Success)
	res = s.Exec(t.Context(), `commit -m "first"`)
	require.True(t, res.Success)

	require.NoError(t, s.Reset(t.Context()))

	files, err := s.ListFiles("")
	require.NoError(t, err)
	assert.Empty(t, files, "previously created files are gone")

	assert.Empty(t, s.Log(t.Context(), 5), "the repository has no history")
	assert.Empty(t, s.Status(t.Context()))
}

func TestCloseIsBestEffort(t *testing.T) {
	t.Parallel()

	s := newTestSandbox(t)
	require.NoError(t, s.Close())
	// Closing an already-removed sandbox must not fail either.
	require.NoError(t, s.Close())
}
