package form

import (
	"context"
	"strings"

	"github.com/m3rciful/soulbot/internal/chat"
)

// Shape is the set of answer shapes a step accepts.
type Shape uint8

const (
	ShapeText Shape = 1 << iota
	ShapePhoto
	ShapeInteraction
)

// Has reports whether s includes other.
func (s Shape) Has(other Shape) bool {
	return s&other != 0
}

func (s Shape) String() string {
	var parts []string
	if s.Has(ShapeText) {
		parts = append(parts, "text")
	}
	if s.Has(ShapePhoto) {
		parts = append(parts, "photo")
	}
	if s.Has(ShapeInteraction) {
		parts = append(parts, "button")
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, " or ")
}

// Input is one raw answer attempt.
type Input struct {
	Shape         Shape
	Text          string
	PhotoRef      string
	Action        string
	Payload       string
	InteractionID string
}

// InputFromEvent converts an inbound chat event into form input.
// Events that cannot answer a step (notices) yield a zero Shape.
func InputFromEvent(ev chat.Event) Input {
	switch ev.Kind {
	case chat.EventText, chat.EventCommand:
		return Input{Shape: ShapeText, Text: ev.Text}
	case chat.EventPhoto:
		return Input{Shape: ShapePhoto, PhotoRef: ev.PhotoRef, Text: ev.Text}
	case chat.EventInteraction:
		in := Input{Shape: ShapeInteraction}
		if ev.Interaction != nil {
			in.Action = ev.Interaction.Action
			in.Payload = ev.Interaction.Payload
			in.InteractionID = ev.Interaction.ID
		}
		return in
	}
	return Input{}
}

// Verdict is the result of validating one input.
// An invalid verdict with an empty Message re-prompts nothing; the step handled feedback itself.
type Verdict struct {
	Valid   bool
	Message string
}

// Accept is the valid verdict.
func Accept() Verdict { return Verdict{Valid: true} }

// Reject is an invalid verdict surfacing msg to the user.
func Reject(msg string) Verdict { return Verdict{Message: msg} }

// Prompter renders prompts and feedback for a form. It is bound to one chat.
type Prompter interface {
	// Prompt sends a new question, optionally with an inline keyboard.
	Prompt(ctx context.Context, text string, kb chat.Keyboard) error
	// Redraw replaces the keyboard of the last prompt in place.
	Redraw(ctx context.Context, kb chat.Keyboard) error
	// Reject surfaces a validation error for in.
	Reject(ctx context.Context, in Input, text string) error
}

// Step is one question of a form.
type Step interface {
	// Key is the answer key the step saves under.
	Key() string
	Accepts() Shape
	Prompt(ctx context.Context, out Prompter) error
	// Validate may be stateful (interactive widgets) and may redraw its own prompt.
	Validate(ctx context.Context, out Prompter, in Input) (Verdict, error)
	Save(answers *Context, in Input) error
}
