// Package sandbox provides an isolated, resettable working directory in which
// git commands are executed and file operations are confined. It is the
// execution surface behind the tool set handed to the AI tutor.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/natefinch/atomic"
)

const (
	// Fixed committer identity so commits never fail for lack of one.
	committerName  = "Git Dojo"
	committerEmail = "tutor@gitdojo.local"

	// DefaultCommandTimeout bounds a single git invocation.
	DefaultCommandTimeout = 30 * time.Second
)

// SetupError is a fatal failure to materialize the sandbox (missing git
// binary, unwritable temp directory). It aborts the whole session.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("sandbox setup failed (%s): %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ErrEscapesRoot is returned when a relative path resolves outside the
// sandbox root.
var ErrEscapesRoot = errors.New("path escapes the sandbox root")

// ExecResult is the outcome of one git invocation. A non-zero exit is data,
// not an error: failed learner commands are expected and meaningful.
type ExecResult struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Sandbox owns a uniquely named, ephemeral directory holding a practice git
// repository. A single mutex serializes all operations: two concurrent git
// commands against the same repository metadata are unsafe.
type Sandbox struct {
	mu          sync.Mutex
	root        string
	gitBinary   string
	timeout     time.Duration
	initialized bool
}

type Option func(*Sandbox)

// WithGitBinary overrides the git executable name or path.
func WithGitBinary(bin string) Option {
	return func(s *Sandbox) {
		if bin != "" {
			s.gitBinary = bin
		}
	}
}

// WithCommandTimeout overrides the per-command execution timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Sandbox) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRoot pins the sandbox to a specific directory instead of a fresh
// temp-based one. Intended for tests.
func WithRoot(root string) Option {
	return func(s *Sandbox) {
		s.root = root
	}
}

// New computes the sandbox path without materializing it; the directory is
// created on the first Initialize call.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		root:      filepath.Join(os.TempDir(), "gitdojo-"+uuid.NewString()),
		gitBinary: "git",
		timeout:   DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the absolute path of the sandbox directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Initialize creates the sandbox directory, runs git init, and configures the
// fixed committer identity. It is idempotent; calling it again is a no-op.
func (s *Sandbox) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *Sandbox) initializeLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return &SetupError{Op: "create directory", Err: err}
	}

	setup := [][]string{
		{"init"},
		{"config", "user.name", committerName},
		{"config", "user.email", committerEmail},
		{"config", "commit.gpgsign", "false"},
	}
	for _, args := range setup {
		if res := s.execLocked(ctx, args); !res.Success {
			return &SetupError{
				Op:  "git " + strings.Join(args, " "),
				Err: errors.New(firstNonEmpty(res.Stderr, "command failed")),
			}
		}
	}

	s.initialized = true
	slog.Debug("Sandbox initialized", "root", s.root)
	return nil
}

// Exec runs git with the given argument string inside the sandbox, bounded by
// the configured timeout. The argument string is split into an argv without
// shell interpretation; a malformed string, a timeout, or a non-zero exit all
// come back as a failed result rather than an error.
func (s *Sandbox) Exec(ctx context.Context, arguments string) ExecResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	argv, err := shellquote.Split(arguments)
	if err != nil {
		return ExecResult{Stderr: fmt.Sprintf("invalid command %q: %v", arguments, err)}
	}
	if len(argv) == 0 {
		return ExecResult{Stderr: "empty command"}
	}

	return s.execLocked(ctx, argv)
}

func (s *Sandbox) execLocked(ctx context.Context, argv []string) ExecResult {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, s.gitBinary, argv...)
	cmd.Dir = s.root
	// Never let git block the session waiting for credentials or an editor.
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_EDITOR=true",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ExecResult{
		Success: err == nil,
		Stdout:  strings.TrimRight(stdout.String(), " \t\r\n"),
		Stderr:  strings.TrimRight(stderr.String(), " \t\r\n"),
	}

	if timeoutCtx.Err() != nil {
		result.Success = false
		if ctx.Err() != nil {
			result.Stderr = "command cancelled"
		} else {
			result.Stderr = fmt.Sprintf("command timed out after %v", s.timeout)
		}
	} else if err != nil && result.Stderr == "" {
		// Process-level failure without diagnostics, e.g. binary missing.
		result.Stderr = err.Error()
	}

	slog.Debug("Sandbox command executed",
		"args", argv,
		"success", result.Success)

	return result
}

// CreateFile writes content to a file under the sandbox root, creating parent
// directories as needed and overwriting any existing file.
func (s *Sandbox) CreateFile(relativePath, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.containedPath(relativePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent directories for %s: %w", relativePath, err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("writing %s: %w", relativePath, err)
	}
	return nil
}

// ReadFile returns the content of a file under the sandbox root. A missing
// file is reported through the found flag, not an error, so callers can
// distinguish "empty file" from "no file".
func (s *Sandbox) ReadFile(relativePath string) (content string, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.containedPath(relativePath)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", relativePath, err)
	}
	return string(data), true, nil
}

// ListFiles enumerates files under the root matching a doublestar glob
// pattern ("" matches everything), as sorted slash-separated relative paths.
// The repository metadata directory is excluded.
func (s *Sandbox) ListFiles(pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if pattern != "" {
			ok, err := doublestar.Match(pattern, rel)
			if err != nil {
				return fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if !ok {
				return nil
			}
		}

		files = append(files, rel)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Status returns the short-form repository status.
func (s *Sandbox) Status(ctx context.Context) string {
	return s.Exec(ctx, "status --short").Stdout
}

// Log returns the oneline log limited to count entries. An empty repository
// yields an empty string.
func (s *Sandbox) Log(ctx context.Context, count int) string {
	if count <= 0 {
		count = 5
	}
	return s.Exec(ctx, fmt.Sprintf("log --oneline -n %d", count)).Stdout
}

// Reset deletes the sandbox directory and reinitializes a brand-new, empty
// repository at the same path.
func (s *Sandbox) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := forceRemoveAll(s.root); err != nil {
		return fmt.Errorf("clearing sandbox: %w", err)
	}
	s.initialized = false
	return s.initializeLocked(ctx)
}

// Close removes the sandbox directory. Errors are swallowed: cleanup must
// never prevent process exit.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := forceRemoveAll(s.root); err != nil {
		slog.Debug("Sandbox cleanup failed", "root", s.root, "error", err)
	}
	s.initialized = false
	return nil
}

// containedPath resolves a relative path strictly inside the sandbox root.
func (s *Sandbox) containedPath(relativePath string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("%w: empty path", ErrEscapesRoot)
	}
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, relativePath)
	}
	path, err := securejoin.SecureJoin(s.root, relativePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, relativePath)
	}
	return path, nil
}

// forceRemoveAll removes a directory tree, clearing read-only permissions
// first: git marks object files read-only, which blocks plain removal on
// some platforms.
func forceRemoveAll(root string) error {
	if err := os.RemoveAll(root); err == nil {
		return nil
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = os.Chmod(path, 0o755)
		} else {
			_ = os.Chmod(path, 0o644)
		}
		return nil
	})

	return os.RemoveAll(root)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
