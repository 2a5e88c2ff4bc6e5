// Package clipboard decides how the order transcript reaches the device
// clipboard. Steps run in order and the first one that succeeds wins; the
// device executes the chosen method with the staged text.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePrompt  Outcome = "prompt"
	OutcomeFailed  Outcome = "failed"
)

type Method string

const (
	MethodSecureWriter Method = "secure_writer"
	MethodCopyCommand  Method = "copy_command"
	MethodPrompt       Method = "prompt"
)

var ErrUnsupported = errors.New("clipboard method not supported by client")

// Environment is what the client declared it can do.
type Environment struct {
	SecureContext  bool `json:"secure_context"`
	AsyncClipboard bool `json:"async_clipboard"`
	CopyCommand    bool `json:"copy_command"`
}

type Result struct {
	Outcome Outcome `json:"outcome"`
	Method  Method  `json:"method,omitempty"`
	Text    string  `json:"text"`
}

// Writer performs the copy for a step. Steps without a writer only stage the
// text for the device.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

type WriterFunc func(ctx context.Context, text string) error

func (f WriterFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

type Step interface {
	Method() Method
	Outcome() Outcome
	Copy(ctx context.Context, env Environment, text string) error
}

type Chain struct {
	steps  []Step
	logger apt.Logger
}

func NewChain(logger apt.Logger, steps ...Step) *Chain {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Chain{steps: steps, logger: logger}
}

// NewDefaultChain tries the async clipboard API, then the legacy copy
// command, then a manual prompt.
func NewDefaultChain(logger apt.Logger) *Chain {
	return NewChain(logger, SecureWriter{}, CopyCommand{}, Prompt{})
}

// Copy never returns an error. It reports OutcomeFailed only when no step
// could run at all.
func (c *Chain) Copy(ctx context.Context, env Environment, text string) Result {
	for _, step := range c.steps {
		if err := c.run(ctx, step, env, text); err != nil {
			c.logger.Debug("clipboard step failed", "method", string(step.Method()), "error", err)
			continue
		}
		return Result{Outcome: step.Outcome(), Method: step.Method(), Text: text}
	}

	c.logger.Info("no clipboard step could run")
	return Result{Outcome: OutcomeFailed, Text: text}
}

func (c *Chain) run(ctx context.Context, step Step, env Environment, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clipboard step panicked: %v", r)
		}
	}()
	return step.Copy(ctx, env, text)
}

// SecureWriter is the async clipboard API. It needs a secure context.
type SecureWriter struct {
	Writer Writer
}

func (SecureWriter) Method() Method   { return MethodSecureWriter }
func (SecureWriter) Outcome() Outcome { return OutcomeSuccess }

func (s SecureWriter) Copy(ctx context.Context, env Environment, text string) error {
	if !env.SecureContext || !env.AsyncClipboard {
		return ErrUnsupported
	}
	if s.Writer == nil {
		return nil
	}
	return s.Writer.WriteText(ctx, text)
}

// CopyCommand is the legacy selection based copy through an off-screen input.
type CopyCommand struct {
	Writer Writer
}

func (CopyCommand) Method() Method   { return MethodCopyCommand }
func (CopyCommand) Outcome() Outcome { return OutcomeSuccess }

func (s CopyCommand) Copy(ctx context.Context, env Environment, text string) error {
	if !env.CopyCommand {
		return ErrUnsupported
	}
	if s.Writer == nil {
		return nil
	}
	return s.Writer.WriteText(ctx, text)
}

// Prompt asks the user to copy the text manually from a pre-filled modal.
type Prompt struct {
	Presenter Writer
}

func (Prompt) Method() Method   { return MethodPrompt }
func (Prompt) Outcome() Outcome { return OutcomePrompt }

func (p Prompt) Copy(ctx context.Context, _ Environment, text string) error {
	if p.Presenter == nil {
		return nil
	}
	return p.Presenter.WriteText(ctx, text)
}
