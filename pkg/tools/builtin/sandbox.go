// Package builtin contains the tool sets shipped with gitdojo.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gitdojo/gitdojo/pkg/sandbox"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

const (
	ToolNameCreateFile    = "create_file"
	ToolNameRunGitCommand = "run_git_command"
	ToolNameGetGitStatus  = "get_git_status"
	ToolNameGetGitLog     = "get_git_log"
	ToolNameListFiles     = "list_files"
	ToolNameReadFile      = "read_file"
	ToolNameResetSandbox  = "reset_sandbox"
)

// SandboxTool exposes the practice sandbox as a fixed, closed set of tools.
type SandboxTool struct {
	tools.BaseToolSet
	handler *sandboxHandler
}

var _ tools.ToolSet = (*SandboxTool)(nil)

type sandboxHandler struct {
	sandbox *sandbox.Sandbox
}

func NewSandboxTool(sb *sandbox.Sandbox) *SandboxTool {
	return &SandboxTool{
		handler: &sandboxHandler{sandbox: sb},
	}
}

type CreateFileArgs struct {
	FileName string `json:"fileName" jsonschema:"Path of the file relative to the sandbox root"`
	Content  string `json:"content" jsonschema:"Exact content to write"`
}

type RunGitCommandArgs struct {
	Command string `json:"command" jsonschema:"Arguments passed to git, e.g. 'add .' or 'commit -m \"msg\"'"`
}

type GetGitLogArgs struct {
	Count int `json:"count,omitempty" jsonschema:"Maximum number of log entries, default 5"`
}

type ReadFileArgs struct {
	FileName string `json:"fileName" jsonschema:"Path of the file relative to the sandbox root"`
}

func (h *sandboxHandler) createFile(_ context.Context, args CreateFileArgs) (*tools.ToolCallResult, error) {
	if err := h.sandbox.CreateFile(args.FileName, args.Content); err != nil {
		if errors.Is(err, sandbox.ErrEscapesRoot) {
			return tools.ResultError(err.Error()), nil
		}
		return nil, err
	}
	return tools.ResultSuccess(fmt.Sprintf("Created %s", args.FileName)), nil
}

func (h *sandboxHandler) runGitCommand(ctx context.Context, args RunGitCommandArgs) (*tools.ToolCallResult, error) {
	res := h.sandbox.Exec(ctx, args.Command)
	return formatExecResult(res), nil
}

func (h *sandboxHandler) getGitStatus(ctx context.Context, _ tools.ToolCall) (*tools.ToolCallResult, error) {
	status := h.sandbox.Status(ctx)
	if status == "" {
		status = "(working tree clean)"
	}
	return tools.ResultSuccess(status), nil
}

func (h *sandboxHandler) getGitLog(ctx context.Context, args GetGitLogArgs) (*tools.ToolCallResult, error) {
	log := h.sandbox.Log(ctx, args.Count)
	if log == "" {
		log = "(no commits yet)"
	}
	return tools.ResultSuccess(log), nil
}

func (h *sandboxHandler) listFiles(_ context.Context, _ tools.ToolCall) (*tools.ToolCallResult, error) {
	files, err := h.sandbox.ListFiles("")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return tools.ResultSuccess("(no files)"), nil
	}
	return tools.ResultSuccess(strings.Join(files, "\n")), nil
}

func (h *sandboxHandler) readFile(_ context.Context, args ReadFileArgs) (*tools.ToolCallResult, error) {
	// A missing file reads as empty content.
	content, _, err := h.sandbox.ReadFile(args.FileName)
	if err != nil {
		if errors.Is(err, sandbox.ErrEscapesRoot) {
			return tools.ResultError(err.Error()), nil
		}
		return nil, err
	}
	return tools.ResultSuccess(content), nil
}

func (h *sandboxHandler) resetSandbox(ctx context.Context, _ tools.ToolCall) (*tools.ToolCallResult, error) {
	if err := h.sandbox.Reset(ctx); err != nil {
		return nil, err
	}
	return tools.ResultSuccess("Sandbox reset: fresh empty repository."), nil
}

// formatExecResult renders an execution outcome for the model. Failures carry
// the captured stderr so the tutor can reason about what the learner hit.
func formatExecResult(res sandbox.ExecResult) *tools.ToolCallResult {
	var b strings.Builder
	if res.Success {
		b.WriteString("exit: success\n")
	} else {
		b.WriteString("exit: failure\n")
	}
	if res.Stdout != "" {
		b.WriteString("stdout:\n")
		b.WriteString(res.Stdout)
		b.WriteString("\n")
	}
	if res.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(res.Stderr)
		b.WriteString("\n")
	}
	out := strings.TrimRight(b.String(), "\n")
	if res.Success {
		return tools.ResultSuccess(out)
	}
	return tools.ResultError(out)
}

func (t *SandboxTool) Instructions() string {
	return `# Practice Sandbox

All tools operate on a disposable git repository created for this session.
Nothing outside it can be read or modified.

- Use "create_file" to stage lesson material, then ask the learner to act.
- Use "run_git_command" to inspect or manipulate the repository. The command
  string is the arguments to git, e.g. "add ." or "commit -m \"msg\"".
  A failing command is a normal result: read its stderr and teach from it.
- Use "get_git_status" and "get_git_log" for quick state checks before and
  after the learner's commands.
- Use "reset_sandbox" only when starting a new exercise from scratch; it
  destroys all files and history.`
}

func (t *SandboxTool) Tools(context.Context) ([]tools.Tool, error) {
	return []tools.Tool{
		{
			Name:        ToolNameCreateFile,
			Category:    "sandbox",
			Description: "Create or overwrite a file in the practice repository.",
			Parameters:  tools.MustSchemaFor[CreateFileArgs](),
			Handler:     tools.NewHandler(t.handler.createFile),
			Annotations: tools.ToolAnnotations{Title: "Create File"},
		},
		{
			Name:        ToolNameRunGitCommand,
			Category:    "sandbox",
			Description: "Run a git command inside the practice repository and capture its output.",
			Parameters:  tools.MustSchemaFor[RunGitCommandArgs](),
			Handler:     tools.NewHandler(t.handler.runGitCommand),
			Annotations: tools.ToolAnnotations{Title: "Run Git Command"},
		},
		{
			Name:        ToolNameGetGitStatus,
			Category:    "sandbox",
			Description: "Get the short-form status of the practice repository.",
			Handler:     t.handler.getGitStatus,
			Annotations: tools.ToolAnnotations{Title: "Git Status", ReadOnlyHint: true},
		},
		{
			Name:        ToolNameGetGitLog,
			Category:    "sandbox",
			Description: "Get the oneline commit log of the practice repository.",
			Parameters:  tools.MustSchemaFor[GetGitLogArgs](),
			Handler:     tools.NewHandler(t.handler.getGitLog),
			Annotations: tools.ToolAnnotations{Title: "Git Log", ReadOnlyHint: true},
		},
		{
			Name:        ToolNameListFiles,
			Category:    "sandbox",
			Description: "List all files in the practice repository as relative paths.",
			Handler:     t.handler.listFiles,
			Annotations: tools.ToolAnnotations{Title: "List Files", ReadOnlyHint: true},
		},
		{
			Name:        ToolNameReadFile,
			Category:    "sandbox",
			Description: "Read a file from the practice repository. A missing file reads as empty.",
			Parameters:  tools.MustSchemaFor[ReadFileArgs](),
			Handler:     tools.NewHandler(t.handler.readFile),
			Annotations: tools.ToolAnnotations{Title: "Read File", ReadOnlyHint: true},
		},
		{
			Name:        ToolNameResetSandbox,
			Category:    "sandbox",
			Description: "Wipe the practice repository and start over with an empty one.",
			Handler:     t.handler.resetSandbox,
			Annotations: tools.ToolAnnotations{Title: "Reset Sandbox", DestructiveHint: true},
		},
	}, nil
}

func (t *SandboxTool) Start(ctx context.Context) error {
	return t.handler.sandbox.Initialize(ctx)
}

func (t *SandboxTool) Stop() error {
	return t.handler.sandbox.Close()
}
