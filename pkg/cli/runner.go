// Package cli implements the interactive tutoring console: it reads learner
// input, forwards it to the runtime, and renders the event stream.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/lesson"
	"github.com/gitdojo/gitdojo/pkg/runtime"
	"github.com/gitdojo/gitdojo/pkg/session"
)

// Runtime is the part of the runtime the console needs.
type Runtime interface {
	RunStream(ctx context.Context, sess *session.Session) <-chan runtime.Event
}

// Resetter wipes the practice sandbox back to a fresh repository.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Runner is the interactive console loop.
type Runner struct {
	rt      Runtime
	out     *Printer
	in      io.Reader
	sandbox Resetter
	store   session.Store
	lessons []lesson.Lesson
	sess    *session.Session
}

type RunnerOpt func(*Runner)

// WithSandbox wires the sandbox used by the reset command.
func WithSandbox(r Resetter) RunnerOpt {
	return func(runner *Runner) { runner.sandbox = r }
}

// WithStore enables best-effort transcript persistence after each turn.
func WithStore(store session.Store) RunnerOpt {
	return func(runner *Runner) { runner.store = store }
}

func WithLessons(lessons []lesson.Lesson) RunnerOpt {
	return func(runner *Runner) { runner.lessons = lessons }
}

func NewRunner(rt Runtime, out *Printer, in io.Reader, opts ...RunnerOpt) *Runner {
	runner := &Runner{
		rt:   rt,
		out:  out,
		in:   in,
		sess: session.New(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run reads learner input until exit, EOF, or context cancellation. Literal
// commands are handled locally; everything else becomes a user message.
func (r *Runner) Run(ctx context.Context) error {
	r.out.Info("Welcome to the git dojo. Type a question, pick a lesson with `menu`, or `help` for commands.")

	scanner := bufio.NewScanner(r.in)
	for {
		r.out.Prompt()
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			r.out.Newline()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			r.out.Info("Happy committing.")
			return nil
		case "help":
			r.printHelp()
		case "menu":
			r.printMenu()
		case "reset":
			r.reset(ctx)
		default:
			prompt := line
			if picked, ok := r.pickLesson(line); ok {
				r.out.Info("Starting lesson: %s", picked.Title)
				prompt = picked.Prompt
			}
			r.runTurn(ctx, prompt)
		}
	}
}

func (r *Runner) printHelp() {
	r.out.Info("Commands:")
	r.out.Info("  menu    list practice lessons (pick one by number)")
	r.out.Info("  reset   wipe the sandbox and start the conversation over")
	r.out.Info("  help    show this help")
	r.out.Info("  exit    leave (also: quit)")
	r.out.Info("Anything else is sent to the tutor.")
}

func (r *Runner) printMenu() {
	if len(r.lessons) == 0 {
		r.out.Info("No lessons available; just ask the tutor for an exercise.")
		return
	}
	r.out.Info("Lessons:")
	for i, l := range r.lessons {
		r.out.Info("  %d. %s — %s", i+1, l.Title, l.Summary)
	}
	r.out.Info("Type a number to start one.")
}

// pickLesson interprets a bare number as a menu selection.
func (r *Runner) pickLesson(line string) (lesson.Lesson, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(r.lessons) {
		return lesson.Lesson{}, false
	}
	return r.lessons[n-1], true
}

func (r *Runner) reset(ctx context.Context) {
	if r.sandbox != nil {
		if err := r.sandbox.Reset(ctx); err != nil {
			r.out.Error("Sandbox reset failed: %v", err)
			return
		}
	}
	r.sess.Clear()
	r.out.Info("Sandbox wiped and conversation cleared. Fresh start.")
}

// runTurn sends one user message and renders the resulting event stream.
func (r *Runner) runTurn(ctx context.Context, content string) {
	r.sess.AddMessage(chat.UserMessage(content))

	streamedContent := false
	endContent := func() {
		if streamedContent {
			r.out.Newline()
			streamedContent = false
		}
	}

	for event := range r.rt.RunStream(ctx, r.sess) {
		switch e := event.(type) {
		case *runtime.AgentChoiceEvent:
			r.out.Content(e.Content)
			streamedContent = true
		case *runtime.ToolCallEvent:
			endContent()
			r.out.ToolCall(e.ToolCall.Function.Name, e.ToolCall.Function.Arguments)
		case *runtime.ToolCallResponseEvent:
			r.out.ToolResult(e.Response, e.IsError)
		case *runtime.ErrorEvent:
			endContent()
			r.out.Error("Error: %s", e.Error)
		case *runtime.MaxIterationsReachedEvent:
			endContent()
			r.out.Error("The tutor stopped after %d tool-calling rounds. Try a smaller step.", e.MaxIterations)
		case *runtime.StreamStoppedEvent:
			endContent()
		}
	}
	endContent()

	if err := session.Save(ctx, r.store, r.sess); err != nil {
		slog.Warn("Failed to persist session", "session_id", r.sess.ID, "error", err)
	}
}
