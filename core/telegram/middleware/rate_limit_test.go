package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestRateLimitPerUser(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)

	now := time.Unix(0, 0)
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	msg := func(userID int64) tele.Context {
		return bot.NewContext(tele.Update{Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		}})
	}
	cb := bot.NewContext(tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 1}}})

	require.NoError(t, h(msg(1)))
	require.NoError(t, h(msg(1)))
	require.NoError(t, h(msg(2)))
	require.NoError(t, h(cb))
	now = now.Add(time.Second)
	require.NoError(t, h(msg(1)))

	require.Equal(t, 4, handled)
	require.Equal(t, 1, limited)
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	require.ErrorContains(t, h(bot.NewContext(tele.Update{})), "boom")
}
