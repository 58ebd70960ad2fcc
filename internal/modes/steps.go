package modes

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/form"
	"github.com/m3rciful/soulbot/internal/store"
)

// Answer keys of the profile form.
const (
	KeyCategories  = "categories"
	KeyName        = "name"
	KeyAge         = "age"
	KeyDescription = "description"
	KeyPhoto       = "photo"
)

const (
	maxNameRunes   = 16
	minAge         = 7
	maxAge         = 79
	minDescription = 100
)

func profileSteps(categories []store.Category) []form.Step {
	steps := make([]form.Step, 0, 5)
	if len(categories) > 0 {
		steps = append(steps, newCategoryStep(categories))
	}
	return append(steps, nameStep{}, ageStep{}, descriptionStep{}, photoStep{})
}

// categoryStep is a multi-select widget: toggles redraw the keyboard, Done completes.
type categoryStep struct {
	options  []store.Category
	selected map[int64]bool
}

func newCategoryStep(options []store.Category) *categoryStep {
	return &categoryStep{options: options, selected: make(map[int64]bool)}
}

func (c *categoryStep) Key() string         { return KeyCategories }
func (c *categoryStep) Accepts() form.Shape { return form.ShapeInteraction }

func (c *categoryStep) Prompt(ctx context.Context, out form.Prompter) error {
	return out.Prompt(ctx, textNoCategories, c.keyboard())
}

func (c *categoryStep) Validate(ctx context.Context, out form.Prompter, in form.Input) (form.Verdict, error) {
	switch in.Action {
	case ActionCategory:
		id, err := strconv.ParseInt(in.Payload, 10, 64)
		if err != nil || !c.known(id) {
			return form.Reject(textUnknownChoice), nil
		}
		if c.selected[id] {
			delete(c.selected, id)
		} else {
			c.selected[id] = true
		}
		return form.Verdict{}, out.Redraw(ctx, c.keyboard())
	case ActionCategoryDone:
		if len(c.selected) == 0 {
			return form.Reject(textPickCategory), nil
		}
		return form.Accept(), nil
	}
	return form.Reject(textUseButtons), nil
}

func (c *categoryStep) Save(answers *form.Context, _ form.Input) error {
	ids := make([]int64, 0, len(c.selected))
	for _, opt := range c.options {
		if c.selected[opt.ID] {
			ids = append(ids, opt.ID)
		}
	}
	answers.Set(KeyCategories, form.IDs(ids))
	return nil
}

func (c *categoryStep) known(id int64) bool {
	for _, opt := range c.options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

func (c *categoryStep) keyboard() chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(c.options)+1)
	for _, opt := range c.options {
		label := opt.Title
		if c.selected[opt.ID] {
			label = "✅ " + label
		}
		kb = append(kb, chat.Row(chat.Button{
			Text:    label,
			Action:  ActionCategory,
			Payload: strconv.FormatInt(opt.ID, 10),
		}))
	}
	return append(kb, chat.Row(chat.Button{Text: textDone, Action: ActionCategoryDone}))
}

type nameStep struct{}

func (nameStep) Key() string         { return KeyName }
func (nameStep) Accepts() form.Shape { return form.ShapeText }

func (nameStep) Prompt(ctx context.Context, out form.Prompter) error {
	return out.Prompt(ctx, textAskName, nil)
}

func (nameStep) Validate(_ context.Context, _ form.Prompter, in form.Input) (form.Verdict, error) {
	name := strings.TrimSpace(in.Text)
	switch {
	case name == "":
		return form.Reject(textNameEmpty), nil
	case strings.HasPrefix(name, "/"):
		return form.Reject(textNameCommand), nil
	case utf8.RuneCountInString(name) > maxNameRunes:
		return form.Reject(textNameTooLong), nil
	}
	return form.Accept(), nil
}

func (nameStep) Save(answers *form.Context, in form.Input) error {
	answers.Set(KeyName, form.String(strings.TrimSpace(in.Text)))
	return nil
}

type ageStep struct{}

func (ageStep) Key() string         { return KeyAge }
func (ageStep) Accepts() form.Shape { return form.ShapeText }

func (ageStep) Prompt(ctx context.Context, out form.Prompter) error {
	return out.Prompt(ctx, textAskAge, nil)
}

func (ageStep) Validate(_ context.Context, _ form.Prompter, in form.Input) (form.Verdict, error) {
	if _, ok := parseAge(in.Text); !ok {
		return form.Reject(textAgeInvalid), nil
	}
	return form.Accept(), nil
}

func (ageStep) Save(answers *form.Context, in form.Input) error {
	age, ok := parseAge(in.Text)
	if !ok {
		return fmt.Errorf("invalid age %q", in.Text)
	}
	answers.Set(KeyAge, form.Int(age))
	return nil
}

func parseAge(text string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || age < minAge || age > maxAge {
		return 0, false
	}
	return age, true
}

type descriptionStep struct{}

func (descriptionStep) Key() string         { return KeyDescription }
func (descriptionStep) Accepts() form.Shape { return form.ShapeText }

func (descriptionStep) Prompt(ctx context.Context, out form.Prompter) error {
	return out.Prompt(ctx, textAskDescription, nil)
}

func (descriptionStep) Validate(_ context.Context, _ form.Prompter, in form.Input) (form.Verdict, error) {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Text)); n < minDescription {
		return form.Reject(fmt.Sprintf(textDescTooShort, n, minDescription)), nil
	}
	return form.Accept(), nil
}

func (descriptionStep) Save(answers *form.Context, in form.Input) error {
	answers.Set(KeyDescription, form.String(strings.TrimSpace(in.Text)))
	return nil
}

type photoStep struct{}

func (photoStep) Key() string         { return KeyPhoto }
func (photoStep) Accepts() form.Shape { return form.ShapePhoto }

func (photoStep) Prompt(ctx context.Context, out form.Prompter) error {
	return out.Prompt(ctx, textAskPhoto, nil)
}

func (photoStep) Validate(_ context.Context, _ form.Prompter, in form.Input) (form.Verdict, error) {
	if strings.TrimSpace(in.PhotoRef) == "" {
		return form.Reject(textPhotoMissing), nil
	}
	return form.Accept(), nil
}

func (photoStep) Save(answers *form.Context, in form.Input) error {
	answers.Set(KeyPhoto, form.String(in.PhotoRef))
	return nil
}
