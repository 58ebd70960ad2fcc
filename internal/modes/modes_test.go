package modes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/chat/chattest"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	rec   *chattest.Recorder
	reg   *session.Registry
	st    *memStore
	notes *recordingNotifier
	modes *Modes
}

func newHarness(t *testing.T, filter bool, categories ...string) *harness {
	t.Helper()
	rec := chattest.New()
	st := newMemStore(categories...)
	notes := &recordingNotifier{}
	return &harness{
		t:     t,
		ctx:   context.Background(),
		rec:   rec,
		reg:   session.NewRegistry(rec, session.Options{IdleTimeout: time.Hour}),
		st:    st,
		notes: notes,
		modes: New(Deps{Store: st, Notifier: notes, CategoryFilter: filter}),
	}
}

func (h *harness) enter(chatID int64, username string, st session.State) {
	h.t.Helper()
	s := h.reg.GetOrCreate(chatID)
	defer s.Release()
	ev := chat.Event{Kind: chat.EventCommand, ChatID: chatID, Username: username, Text: "/start"}
	require.NoError(h.t, h.reg.ChangeState(h.ctx, s, st, ev))
}

func (h *harness) send(ev chat.Event) {
	h.t.Helper()
	s, ok := h.reg.Get(ev.ChatID)
	require.True(h.t, ok, "no active session for chat %d", ev.ChatID)
	defer s.Release()
	require.NoError(h.t, h.reg.Deliver(h.ctx, s, ev))
}

func (h *harness) active(chatID int64) string {
	s, ok := h.reg.Get(chatID)
	if !ok {
		return ""
	}
	defer s.Release()
	return s.StateName()
}

func (h *harness) last(chatID int64) chattest.Call {
	h.t.Helper()
	c, ok := h.rec.Last(chatID)
	require.True(h.t, ok)
	return c
}

func text(chatID int64, s string) chat.Event {
	return chat.Event{Kind: chat.EventText, ChatID: chatID, Text: s}
}

func photo(chatID int64, ref string) chat.Event {
	return chat.Event{Kind: chat.EventPhoto, ChatID: chatID, PhotoRef: ref}
}

func press(chatID int64, username, action, payload string) chat.Event {
	return chat.Event{
		Kind:     chat.EventInteraction,
		ChatID:   chatID,
		Username: username,
		Interaction: &chat.Interaction{
			ID:      "cb-" + action,
			Action:  action,
			Payload: payload,
		},
	}
}

func seedProfile(t *testing.T, st *memStore, chatID int64, name string, categories ...int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertProfile(ctx, store.Profile{
		ChatID:      chatID,
		Username:    name + "_handle",
		Name:        name,
		Age:         30,
		Description: strings.Repeat("x", 100),
		PhotoRef:    "photo-" + name,
	}))
	if len(categories) > 0 {
		require.NoError(t, st.SetUserCategories(ctx, chatID, categories))
	}
}

func TestEditProfileCompletesAndPersists(t *testing.T) {
	h := newHarness(t, false, "it", "art", "music")

	h.enter(1, "ada", h.modes.EditProfile())
	first := h.last(1)
	require.Equal(t, textNoCategories, first.Text)
	require.Len(t, first.Keyboard, 4)

	h.send(press(1, "ada", ActionCategory, "1"))
	calls := h.rec.For(1)
	redraw := calls[len(calls)-1]
	require.Equal(t, chattest.OpEdit, redraw.Op)
	require.Equal(t, first.MessageID, redraw.MessageID)
	require.Equal(t, "✅ it", redraw.Keyboard[0][0].Text)

	h.send(press(1, "ada", ActionCategoryDone, ""))
	require.Equal(t, textAskName, h.last(1).Text)
	h.send(text(1, "Ada"))
	require.Equal(t, textAskAge, h.last(1).Text)
	h.send(text(1, "29"))
	require.Equal(t, textAskDescription, h.last(1).Text)
	desc := strings.Repeat("a", 120)
	h.send(text(1, desc))
	require.Equal(t, textAskPhoto, h.last(1).Text)
	h.send(photo(1, "file-ada"))

	require.Equal(t, textProfileSaved, h.last(1).Text)
	require.Equal(t, 0, h.reg.Len())

	p, err := h.st.GetProfile(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Ada", p.Name)
	require.Equal(t, 29, p.Age)
	require.Equal(t, desc, p.Description)
	require.Equal(t, "file-ada", p.PhotoRef)
	require.Equal(t, "ada", p.Username)

	titles, err := h.st.UserCategories(h.ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"it"}, titles)
}

func TestEditProfileRequiresUsername(t *testing.T) {
	h := newHarness(t, false, "it")

	h.enter(1, "", h.modes.EditProfile())

	require.Equal(t, textNeedUsername, h.last(1).Text)
	require.Equal(t, 0, h.reg.Len())
	exists, err := h.st.UserExists(h.ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEditProfileValidationKeepsStep(t *testing.T) {
	h := newHarness(t, false)

	h.enter(1, "ada", h.modes.EditProfile())
	require.Equal(t, textAskName, h.last(1).Text)

	h.send(text(1, "   "))
	require.Equal(t, textNameEmpty, h.last(1).Text)
	h.send(text(1, strings.Repeat("я", 17)))
	require.Equal(t, textNameTooLong, h.last(1).Text)
	h.send(text(1, "Ada"))
	require.Equal(t, textAskAge, h.last(1).Text)

	for _, bad := range []string{"abc", "6", "80"} {
		h.send(text(1, bad))
		require.Equal(t, textAgeInvalid, h.last(1).Text)
	}
	h.send(text(1, "7"))
	require.Equal(t, textAskDescription, h.last(1).Text)

	h.send(text(1, "  too short  "))
	require.Equal(t, "Description is too short: 9 of 100 characters.", h.last(1).Text)
	h.send(text(1, strings.Repeat("b", 100)))

	h.send(text(1, "not a photo"))
	require.Equal(t, "Please answer with photo.", h.last(1).Text)
	require.Equal(t, "edit_profile", h.active(1))
}

func TestCategoryStepFeedback(t *testing.T) {
	h := newHarness(t, false, "it", "art")

	h.enter(1, "ada", h.modes.EditProfile())

	h.send(press(1, "ada", ActionCategoryDone, ""))
	answers := h.rec.Answers()
	require.Len(t, answers, 1)
	require.Equal(t, textPickCategory, answers[0].Text)

	h.send(press(1, "ada", ActionCategory, "99"))
	answers = h.rec.Answers()
	require.Len(t, answers, 2)
	require.Equal(t, textUnknownChoice, answers[1].Text)

	h.send(text(1, "music"))
	reject := h.last(1)
	require.Equal(t, "Please answer with button.", reject.Text)
	require.Len(t, reject.Keyboard, 3)

	h.send(press(1, "ada", ActionCategory, "2"))
	h.send(press(1, "ada", ActionCategoryDone, ""))
	require.Equal(t, textAskName, h.last(1).Text)
}

func TestEditProfileIncompleteDiscarded(t *testing.T) {
	h := newHarness(t, false)

	h.enter(1, "ada", h.modes.EditProfile())
	h.send(text(1, "Ada"))
	require.Equal(t, 1, h.reg.Drain(h.ctx))

	exists, err := h.st.UserExists(h.ctx, 1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEditProfileRedisplay(t *testing.T) {
	h := newHarness(t, false)

	h.enter(1, "ada", h.modes.EditProfile())
	h.send(text(1, "Ada"))

	s, ok := h.reg.Get(1)
	require.True(t, ok)
	r, ok := s.State().(interface {
		Redisplay(context.Context, *session.Soul) error
	})
	require.True(t, ok)
	require.NoError(t, r.Redisplay(h.ctx, s))
	s.Release()

	require.Equal(t, textAskAge, h.last(1).Text)
}

func TestShowProfileEditSwitches(t *testing.T) {
	h := newHarness(t, false, "it")
	seedProfile(t, h.st, 1, "ada", 1)

	h.enter(1, "ada", h.modes.ShowProfile())
	shown := h.last(1)
	require.Equal(t, chattest.OpPhoto, shown.Op)
	require.Equal(t, "photo-ada", shown.PhotoRef)
	require.Contains(t, shown.Text, "ada, 30")
	require.Contains(t, shown.Text, "#it")
	require.Equal(t, ActionEdit, shown.Keyboard[0][0].Action)

	h.send(text(1, "hello"))
	require.Equal(t, "show_profile", h.active(1))

	h.send(press(1, "ada", ActionEdit, ""))
	require.Equal(t, "edit_profile", h.active(1))
	require.Equal(t, textNoCategories, h.last(1).Text)
}

func TestShowProfileWithoutProfile(t *testing.T) {
	h := newHarness(t, false)

	h.enter(1, "ada", h.modes.ShowProfile())

	require.Equal(t, textNoProfile, h.last(1).Text)
	require.Equal(t, 0, h.reg.Len())
}

func TestViewProfileBrowsesForward(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "me")
	seedProfile(t, h.st, 2, "bob")
	seedProfile(t, h.st, 3, "eve")

	h.enter(1, "me", h.modes.ViewProfile())
	require.Equal(t, "photo-bob", h.last(1).PhotoRef)

	h.send(press(1, "me", ActionLike, ""))
	require.Equal(t, "photo-eve", h.last(1).PhotoRef)
	require.Equal(t, []notification{{kind: "like", chatID: 2}}, h.notes.sent)
	require.Equal(t, textLiked, h.rec.Answers()[0].Text)

	h.send(press(1, "me", ActionNext, ""))
	require.Equal(t, textNothingLeft, h.last(1).Text)
	require.Equal(t, "view_profile", h.active(1))

	h.send(press(1, "me", ActionLike, ""))
	require.Equal(t, 1, h.st.likeCount())
	answers := h.rec.Answers()
	require.Len(t, answers, 3)
	require.Empty(t, answers[2].Text)
}

func TestViewProfileDuplicateLikeNotNotified(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "me")
	seedProfile(t, h.st, 2, "bob")
	_, err := h.st.AddLike(h.ctx, 1, 2)
	require.NoError(t, err)

	h.enter(1, "me", h.modes.ViewProfile())
	h.send(press(1, "me", ActionLike, ""))

	require.Empty(t, h.notes.sent)
	require.Equal(t, 1, h.st.likeCount())
	require.Equal(t, textNothingLeft, h.last(1).Text)
}

func TestViewProfileCategoryFilter(t *testing.T) {
	h := newHarness(t, true, "it", "art")
	seedProfile(t, h.st, 1, "me", 1)
	seedProfile(t, h.st, 2, "painter", 2)
	seedProfile(t, h.st, 3, "coder", 1, 2)

	h.enter(1, "me", h.modes.ViewProfile())
	require.Equal(t, "photo-coder", h.last(1).PhotoRef)

	h.send(press(1, "me", ActionNext, ""))
	require.Equal(t, textNothingLeft, h.last(1).Text)
}

func TestLikeThenAcceptRevealsHandle(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "alice")
	seedProfile(t, h.st, 2, "bob")

	h.enter(1, "alice_handle", h.modes.ViewProfile())
	h.send(press(1, "alice_handle", ActionLike, ""))
	require.Equal(t, 1, h.st.likeCount())

	h.enter(2, "bob_handle", h.modes.ViewLikedProfile())
	require.Equal(t, "photo-alice", h.last(2).PhotoRef)

	h.send(press(2, "bob_handle", ActionAccept, ""))
	require.Equal(t, "It's a match! Write to @alice_handle", h.last(2).Text)
	require.Equal(t, 0, h.st.likeCount())
	require.Equal(t, "", h.active(2))

	require.Len(t, h.notes.sent, 2)
	match := h.notes.sent[1]
	require.Equal(t, "match", match.kind)
	require.Equal(t, int64(1), match.chatID)
	require.Equal(t, int64(2), match.from.ChatID)
}

func TestInboxRejectAdvances(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "alice")
	seedProfile(t, h.st, 2, "bob")
	seedProfile(t, h.st, 3, "carol")
	for _, from := range []int64{9, 1, 3} {
		_, err := h.st.AddLike(h.ctx, from, 2)
		require.NoError(t, err)
	}

	h.enter(2, "bob_handle", h.modes.ViewLikedProfile())
	require.Equal(t, "photo-alice", h.last(2).PhotoRef)
	require.Equal(t, 2, h.st.likeCount())

	h.send(press(2, "bob_handle", ActionReject, ""))
	require.Equal(t, "photo-carol", h.last(2).PhotoRef)

	h.send(press(2, "bob_handle", ActionReject, ""))
	require.Equal(t, textInboxEmpty, h.last(2).Text)
	require.Equal(t, 0, h.st.likeCount())
	require.Equal(t, 0, h.reg.Len())
}

func TestInboxEmpty(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 2, "bob")

	h.enter(2, "bob_handle", h.modes.ViewLikedProfile())

	require.Equal(t, textInboxEmpty, h.last(2).Text)
	require.Equal(t, 0, h.reg.Len())
}

func TestEditProfileWithoutCategoriesClearsOldSet(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "ada")
	require.NoError(t, h.st.SetUserCategories(h.ctx, 1, []int64{1, 2}))

	h.enter(1, "ada", h.modes.EditProfile())
	require.Equal(t, textAskName, h.last(1).Text)
	h.send(text(1, "Ada"))
	h.send(text(1, "29"))
	h.send(text(1, strings.Repeat("a", 120)))
	h.send(photo(1, "file-ada"))
	require.Equal(t, textProfileSaved, h.last(1).Text)

	h.st.mu.Lock()
	defer h.st.mu.Unlock()
	require.Empty(t, h.st.userCats[1])
}

func redisplay(t *testing.T, h *harness, chatID int64) {
	t.Helper()
	s, ok := h.reg.Get(chatID)
	require.True(t, ok)
	defer s.Release()
	r, ok := s.State().(interface {
		Redisplay(context.Context, *session.Soul) error
	})
	require.True(t, ok, "%s cannot redisplay", s.StateName())
	require.NoError(t, r.Redisplay(h.ctx, s))
}

func TestViewProfileRedisplayKeepsCursor(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "me")
	seedProfile(t, h.st, 2, "bob")
	seedProfile(t, h.st, 3, "eve")

	h.enter(1, "me", h.modes.ViewProfile())
	first := h.last(1)
	require.Equal(t, "photo-bob", first.PhotoRef)

	redisplay(t, h, 1)
	again := h.last(1)
	require.Equal(t, chattest.OpPhoto, again.Op)
	require.Equal(t, "photo-bob", again.PhotoRef)
	require.Equal(t, first.Text, again.Text)
	require.Equal(t, browseKeyboard(), again.Keyboard)
	require.NotEqual(t, first.MessageID, again.MessageID)

	h.send(press(1, "me", ActionLike, ""))
	require.Equal(t, []notification{{kind: "like", chatID: 2}}, h.notes.sent)
	require.Equal(t, "photo-eve", h.last(1).PhotoRef)

	h.send(press(1, "me", ActionNext, ""))
	require.Equal(t, textNothingLeft, h.last(1).Text)
	calls := len(h.rec.For(1))
	redisplay(t, h, 1)
	require.Len(t, h.rec.For(1), calls)
}

func TestInboxRedisplayKeepsPendingLike(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "alice")
	seedProfile(t, h.st, 2, "bob")
	_, err := h.st.AddLike(h.ctx, 1, 2)
	require.NoError(t, err)

	h.enter(2, "bob_handle", h.modes.ViewLikedProfile())
	require.Equal(t, "photo-alice", h.last(2).PhotoRef)

	redisplay(t, h, 2)
	again := h.last(2)
	require.Equal(t, "photo-alice", again.PhotoRef)
	require.Equal(t, inboxKeyboard(), again.Keyboard)
	require.Equal(t, 1, h.st.likeCount())

	h.send(press(2, "bob_handle", ActionAccept, ""))
	require.Equal(t, "It's a match! Write to @alice_handle", h.last(2).Text)
}

func TestShowProfileRedisplayKeepsEditButton(t *testing.T) {
	h := newHarness(t, false)
	seedProfile(t, h.st, 1, "ada")

	h.enter(1, "ada", h.modes.ShowProfile())
	first := h.last(1)

	redisplay(t, h, 1)
	again := h.last(1)
	require.Equal(t, first.Text, again.Text)
	require.Equal(t, editKeyboard(), again.Keyboard)

	h.send(press(1, "ada", ActionEdit, ""))
	require.Equal(t, "edit_profile", h.active(1))
}
