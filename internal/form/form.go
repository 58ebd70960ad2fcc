// Package form implements a transport-independent sequential data collection
// protocol: an ordered list of steps, each validated before the cursor moves on.
package form

import (
	"context"
	"fmt"
)

// Manager drives a single form instance.
type Manager struct {
	steps   []Step
	cursor  int
	started bool
	answers *Context
	out     Prompter
}

// New creates a form over steps rendering through out.
func New(out Prompter, steps ...Step) *Manager {
	return &Manager{
		steps:   steps,
		answers: NewContext(),
		out:     out,
	}
}

// Start activates the form and shows the current prompt. Calling it again
// re-displays the current prompt without resetting progress.
func (m *Manager) Start(ctx context.Context) error {
	m.started = true
	step := m.current()
	if step == nil {
		return nil
	}
	if err := step.Prompt(ctx, m.out); err != nil {
		return fmt.Errorf("form: prompt %q: %w", step.Key(), err)
	}
	return nil
}

// ProcessInput feeds one answer attempt to the current step.
// It returns true once the last step has been saved.
func (m *Manager) ProcessInput(ctx context.Context, in Input) (bool, error) {
	if !m.started {
		return false, nil
	}
	step := m.current()
	if step == nil {
		return true, nil
	}

	if !step.Accepts().Has(in.Shape) {
		if err := m.out.Reject(ctx, in, mismatchText(step.Accepts())); err != nil {
			return false, fmt.Errorf("form: reject %q: %w", step.Key(), err)
		}
		return false, nil
	}

	verdict, err := step.Validate(ctx, m.out, in)
	if err != nil {
		return false, fmt.Errorf("form: validate %q: %w", step.Key(), err)
	}
	if !verdict.Valid {
		if verdict.Message != "" {
			if err := m.out.Reject(ctx, in, verdict.Message); err != nil {
				return false, fmt.Errorf("form: reject %q: %w", step.Key(), err)
			}
		}
		return false, nil
	}

	if err := step.Save(m.answers, in); err != nil {
		return false, fmt.Errorf("form: save %q: %w", step.Key(), err)
	}
	m.cursor++

	next := m.current()
	if next == nil {
		return true, nil
	}
	if err := next.Prompt(ctx, m.out); err != nil {
		return false, fmt.Errorf("form: prompt %q: %w", next.Key(), err)
	}
	return false, nil
}

// Started reports whether Start has been called.
func (m *Manager) Started() bool {
	return m.started
}

// Completed reports whether every step has been answered.
func (m *Manager) Completed() bool {
	return m.started && m.cursor >= len(m.steps)
}

// Answers exposes the collected answers.
func (m *Manager) Answers() *Context {
	return m.answers
}

// Current returns the step awaiting an answer, or nil when complete.
func (m *Manager) Current() Step {
	return m.current()
}

func (m *Manager) current() Step {
	if m.cursor < len(m.steps) {
		return m.steps[m.cursor]
	}
	return nil
}

func mismatchText(accepts Shape) string {
	return "Please answer with " + accepts.String() + "."
}
