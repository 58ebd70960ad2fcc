package modes

import (
	"context"

	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/form"
	"github.com/m3rciful/soulbot/internal/session"
)

// soulPrompter renders a form through a soul. It remembers the keyboard of the
// last prompt so feedback messages carry the live widget forward.
type soulPrompter struct {
	s  *session.Soul
	ev chat.Event
	kb chat.Keyboard
}

func (p *soulPrompter) bind(s *session.Soul, ev chat.Event) {
	p.s, p.ev = s, ev
}

func (p *soulPrompter) Prompt(ctx context.Context, text string, kb chat.Keyboard) error {
	p.kb = kb
	return p.s.SendText(ctx, text, kb)
}

func (p *soulPrompter) Redraw(ctx context.Context, kb chat.Keyboard) error {
	p.kb = kb
	return p.s.EditKeyboard(ctx, kb)
}

func (p *soulPrompter) Reject(ctx context.Context, in form.Input, text string) error {
	if in.Shape == form.ShapeInteraction && p.ev.Interaction != nil {
		return p.s.Answer(ctx, p.ev, text)
	}
	return p.s.SendText(ctx, text, p.kb)
}
