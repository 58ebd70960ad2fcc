package form

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/soulbot/internal/chat"
)

type recordingPrompter struct {
	prompts  []string
	redraws  int
	rejected []string
}

func (p *recordingPrompter) Prompt(_ context.Context, text string, _ chat.Keyboard) error {
	p.prompts = append(p.prompts, text)
	return nil
}

func (p *recordingPrompter) Redraw(context.Context, chat.Keyboard) error {
	p.redraws++
	return nil
}

func (p *recordingPrompter) Reject(_ context.Context, _ Input, text string) error {
	p.rejected = append(p.rejected, text)
	return nil
}

type textStep struct {
	key      string
	question string
	valid    func(string) bool
}

func (s textStep) Key() string    { return s.key }
func (s textStep) Accepts() Shape { return ShapeText }
func (s textStep) Prompt(ctx context.Context, out Prompter) error {
	return out.Prompt(ctx, s.question, nil)
}

func (s textStep) Validate(_ context.Context, _ Prompter, in Input) (Verdict, error) {
	if s.valid != nil && !s.valid(in.Text) {
		return Reject("bad " + s.key), nil
	}
	return Accept(), nil
}

func (s textStep) Save(answers *Context, in Input) error {
	answers.Set(s.key, String(in.Text))
	return nil
}

type numberStep struct{}

func (numberStep) Key() string    { return "age" }
func (numberStep) Accepts() Shape { return ShapeText }
func (numberStep) Prompt(ctx context.Context, out Prompter) error {
	return out.Prompt(ctx, "age?", nil)
}

func (numberStep) Validate(_ context.Context, _ Prompter, in Input) (Verdict, error) {
	if _, err := strconv.Atoi(in.Text); err != nil {
		return Reject("number please"), nil
	}
	return Accept(), nil
}

func (numberStep) Save(answers *Context, in Input) error {
	n, err := strconv.Atoi(in.Text)
	if err != nil {
		return err
	}
	answers.Set("age", Int(n))
	return nil
}

func text(s string) Input { return Input{Shape: ShapeText, Text: s} }

func TestProcessInputBeforeStartIsIgnored(t *testing.T) {
	out := &recordingPrompter{}
	m := New(out, textStep{key: "name", question: "name?"}, numberStep{})

	for _, in := range []Input{text("Ada"), text("29"), {Shape: ShapePhoto, PhotoRef: "p"}} {
		done, err := m.ProcessInput(context.Background(), in)
		require.NoError(t, err)
		require.False(t, done)
	}
	require.Zero(t, m.Answers().Len())
	require.Empty(t, out.prompts)
	require.Empty(t, out.rejected)
	require.False(t, m.Started())
}

func TestFormCompletesExactlyOnceWithDeclaredKeys(t *testing.T) {
	out := &recordingPrompter{}
	m := New(out, textStep{key: "name", question: "name?"}, numberStep{})
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.Equal(t, []string{"name?"}, out.prompts)

	done, err := m.ProcessInput(ctx, text("Ada"))
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, []string{"name?", "age?"}, out.prompts)

	done, err = m.ProcessInput(ctx, text("29"))
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, m.Completed())
	require.Equal(t, []string{"age", "name"}, m.Answers().Keys())

	name, err := m.Answers().String("name")
	require.NoError(t, err)
	require.Equal(t, "Ada", name)
	age, err := m.Answers().Int("age")
	require.NoError(t, err)
	require.Equal(t, 29, age)

	// no re-prompt after completion
	require.Len(t, out.prompts, 2)
	done, err = m.ProcessInput(ctx, text("again"))
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, out.prompts, 2)
}

func TestInvalidInputKeepsCursor(t *testing.T) {
	out := &recordingPrompter{}
	m := New(out, numberStep{}, textStep{key: "name", question: "name?"})
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	for i := 0; i < 5; i++ {
		done, err := m.ProcessInput(ctx, text("not a number"))
		require.NoError(t, err)
		require.False(t, done)
	}
	require.Len(t, out.rejected, 5)
	require.Equal(t, "number please", out.rejected[0])
	require.Equal(t, "age", m.Current().Key())
	require.Zero(t, m.Answers().Len())
}

func TestShapeMismatchIsRejected(t *testing.T) {
	out := &recordingPrompter{}
	m := New(out, textStep{key: "name", question: "name?"})
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	done, err := m.ProcessInput(ctx, Input{Shape: ShapePhoto, PhotoRef: "file-1"})
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, []string{"Please answer with text."}, out.rejected)
	require.False(t, m.Answers().Has("name"))
}

func TestStartTwiceRedisplaysWithoutReset(t *testing.T) {
	out := &recordingPrompter{}
	m := New(out, textStep{key: "name", question: "name?"}, numberStep{})
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	_, err := m.ProcessInput(ctx, text("Ada"))
	require.NoError(t, err)

	require.NoError(t, m.Start(ctx))
	require.Equal(t, []string{"name?", "age?", "age?"}, out.prompts)
	require.True(t, m.Answers().Has("name"))
}

func TestContextTypedAccessors(t *testing.T) {
	c := NewContext()
	_, err := c.String("name")
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "name", missing.Key)

	c.Set("name", Int(3))
	_, err = c.String("name")
	var typeErr *FieldTypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, KindString, typeErr.Want)
	require.Equal(t, KindInt, typeErr.Got)

	ids := []int64{1, 2}
	c.Set("cats", IDs(ids))
	ids[0] = 9
	got, err := c.IDs("cats")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, got)
}

func TestInputFromEvent(t *testing.T) {
	in := InputFromEvent(chat.Event{Kind: chat.EventInteraction, Interaction: &chat.Interaction{ID: "q", Action: "cat", Payload: "2"}})
	require.Equal(t, ShapeInteraction, in.Shape)
	require.Equal(t, "cat", in.Action)
	require.Equal(t, "2", in.Payload)
	require.Equal(t, "q", in.InteractionID)

	require.Equal(t, ShapePhoto, InputFromEvent(chat.Event{Kind: chat.EventPhoto, PhotoRef: "f"}).Shape)
	require.Equal(t, Shape(0), InputFromEvent(chat.Event{Kind: chat.EventNotice}).Shape)
	require.Equal(t, "text or photo", (ShapeText | ShapePhoto).String())
}
