package builtin

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitdojo/gitdojo/pkg/sandbox"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

func newTestTool(t *testing.T) *SandboxTool {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	sb := sandbox.New(sandbox.WithRoot(t.TempDir() + "/sandbox"))
	tool := NewSandboxTool(sb)
	require.NoError(t, tool.Start(t.Context()))
	t.Cleanup(func() {
		_ = tool.Stop()
	})
	return tool
}

func callByName(t *testing.T, tool *SandboxTool, name, arguments string) *tools.ToolCallResult {
	t.Helper()

	allTools, err := tool.Tools(t.Context())
	require.NoError(t, err)

	for _, tl := range allTools {
		if tl.Name == name {
			result, err := tl.Handler(t.Context(), tools.ToolCall{
				ID:       "call_test",
				Function: tools.FunctionCall{Name: name, Arguments: arguments},
			})
			require.NoError(t, err)
			return result
		}
	}

	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestSandboxTool_ExposesFixedToolSurface(t *testing.T) {
	tool := newTestTool(t)

	allTools, err := tool.Tools(t.Context())
	require.NoError(t, err)

	var names []string
	for _, tl := range allTools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolNameCreateFile,
		ToolNameRunGitCommand,
		ToolNameGetGitStatus,
		ToolNameGetGitLog,
		ToolNameListFiles,
		ToolNameReadFile,
		ToolNameResetSandbox,
	}, names)
}

func TestSandboxTool_ParametersAreObjects(t *testing.T) {
	tool := newTestTool(t)

	allTools, err := tool.Tools(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, allTools)

	for _, tl := range allTools {
		m, err := tools.SchemaToMap(tl.Parameters)
		require.NoError(t, err)
		assert.Equal(t, "object", m["type"])
	}
}

func TestSandboxTool_CreateAndReadFile(t *testing.T) {
	tool := newTestTool(t)

	result := callByName(t, tool, ToolNameCreateFile, `{"fileName":"a.txt","content":"hello"}`)
	assert.False(t, result.IsError)

	result = callByName(t, tool, ToolNameReadFile, `{"fileName":"a.txt"}`)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello", result.Output)
}

func TestSandboxTool_ReadMissingFileIsEmpty(t *testing.T) {
	tool := newTestTool(t)

	result := callByName(t, tool, ToolNameReadFile, `{"fileName":"missing.txt"}`)
	assert.False(t, result.IsError)
	assert.Empty(t, result.Output)
}

func TestSandboxTool_CreateFileOutsideRootIsToolError(t *testing.T) {
	tool := newTestTool(t)

	result := callByName(t, tool, ToolNameCreateFile, `{"fileName":"/etc/passwd","content":"x"}`)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Output, "escapes the sandbox root")
}

func TestSandboxTool_CommitFlow(t *testing.T) {
	tool := newTestTool(t)

	callByName(t, tool, ToolNameCreateFile, `{"fileName":"a.txt","content":"hello"}`)

	result := callByName(t, tool, ToolNameRunGitCommand, `{"command":"add a.txt"}`)
	assert.False(t, result.IsError, result.Output)

	result = callByName(t, tool, ToolNameRunGitCommand, `{"command":"commit -m \"first\""}`)
	assert.False(t, result.IsError, result.Output)

	result = callByName(t, tool, ToolNameGetGitLog, `{"count":1}`)
	assert.Contains(t, result.Output, "first")
}

func TestSandboxTool_FailedCommandIsResultNotError(t *testing.T) {
	tool := newTestTool(t)

	result := callByName(t, tool, ToolNameRunGitCommand, `{"command":"definitely-not-a-subcommand"}`)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Output, "exit: failure")
	assert.Contains(t, result.Output, "stderr:")
}

func TestSandboxTool_StatusAndList(t *testing.T) {
	tool := newTestTool(t)

	result := callByName(t, tool, ToolNameGetGitStatus, "")
	assert.Equal(t, "(working tree clean)", result.Output)

	result = callByName(t, tool, ToolNameListFiles, "")
	assert.Equal(t, "(no files)", result.Output)

	callByName(t, tool, ToolNameCreateFile, `{"fileName":"a.txt","content":"x"}`)

	result = callByName(t, tool, ToolNameGetGitStatus, "")
	assert.Contains(t, result.Output, "a.txt")

	result = callByName(t, tool, ToolNameListFiles, "")
	assert.Equal(t, "a.txt", result.Output)
}

func TestSandboxTool_Reset(t *testing.T) {
	tool := newTestTool(t)

	callByName(t, tool, ToolNameCreateFile, `{"fileName":"a.txt","content":"x"}`)
	callByName(t, tool, ToolNameRunGitCommand, `{"command":"add ."}`)
	callByName(t, tool, ToolNameRunGitCommand, `{"command":"commit -m \"first\""}`)

	result := callByName(t, tool, ToolNameResetSandbox, "")
	assert.False(t, result.IsError)

	result = callByName(t, tool, ToolNameListFiles, "")
	assert.Equal(t, "(no files)", result.Output)

	result = callByName(t, tool, ToolNameGetGitLog, "")
	assert.Equal(t, "(no commits yet)", result.Output)
}
