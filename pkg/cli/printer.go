package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer renders runtime events and console chrome. Colors are enabled only
// when the writer is a real terminal.
type Printer struct {
	w io.Writer

	agent  *color.Color
	tool   *color.Color
	faint  *color.Color
	errCol *color.Color
}

func NewPrinter(w io.Writer) *Printer {
	p := &Printer{
		w:      w,
		agent:  color.New(color.FgCyan),
		tool:   color.New(color.FgYellow),
		faint:  color.New(color.Faint),
		errCol: color.New(color.FgRed),
	}
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		for _, c := range []*color.Color{p.agent, p.tool, p.faint, p.errCol} {
			c.DisableColor()
		}
	}
	return p
}

// Content streams a piece of the assistant's reply, no newline.
func (p *Printer) Content(s string) {
	_, _ = p.agent.Fprint(p.w, s)
}

func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.w)
}

// ToolCall narrates a tool invocation on its own line.
func (p *Printer) ToolCall(name, arguments string) {
	args := strings.TrimSpace(arguments)
	if args == "" || args == "{}" {
		_, _ = p.tool.Fprintf(p.w, "-> %s\n", name)
		return
	}
	_, _ = p.tool.Fprintf(p.w, "-> %s %s\n", name, args)
}

// ToolResult narrates a tool's output, indented and trimmed.
func (p *Printer) ToolResult(output string, isError bool) {
	output = strings.TrimSpace(output)
	if output == "" {
		return
	}
	c := p.faint
	if isError {
		c = p.errCol
	}
	for _, line := range strings.Split(output, "\n") {
		_, _ = c.Fprintf(p.w, "   %s\n", line)
	}
}

func (p *Printer) Info(format string, args ...any) {
	_, _ = p.faint.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Error(format string, args ...any) {
	_, _ = p.errCol.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Prompt() {
	_, _ = fmt.Fprint(p.w, "\n> ")
}
