package dispatch

import (
	"context"

	"github.com/m3rciful/soulbot/internal/modes"
	"github.com/m3rciful/soulbot/internal/session"
)

const (
	textExpired      = "This message has expired."
	textNoMode       = "Send /start to create a profile, /find to browse or /check to see your likes."
	textHasProfile   = "You already have a profile. Send /profile to view or edit it."
	textNeedsProfile = "Create a profile first with /start."
)

// Command is a mode entry point.
type Command struct {
	Name        string
	Description string
	// RequireProfile selects the guard: true needs a stored profile, false needs none.
	RequireProfile bool
	// Rejection is sent when the guard fails and no mode is active.
	Rejection string
	Enter     func(m *modes.Modes) session.State
}

// DefaultCommands lists the commands of the bot in menu order.
func DefaultCommands() []Command {
	return []Command{
		{
			Name:        "/start",
			Description: "Create your profile",
			Rejection:   textHasProfile,
			Enter:       (*modes.Modes).EditProfile,
		},
		{
			Name:           "/profile",
			Description:    "Show your profile",
			RequireProfile: true,
			Rejection:      textNeedsProfile,
			Enter:          (*modes.Modes).ShowProfile,
		},
		{
			Name:           "/find",
			Description:    "Browse profiles",
			RequireProfile: true,
			Rejection:      textNeedsProfile,
			Enter:          (*modes.Modes).ViewProfile,
		},
		{
			Name:           "/check",
			Description:    "See who liked you",
			RequireProfile: true,
			Rejection:      textNeedsProfile,
			Enter:          (*modes.Modes).ViewLikedProfile,
		},
	}
}

func (c Command) allowed(ctx context.Context, st modes.Store, chatID int64) (bool, error) {
	exists, err := st.UserExists(ctx, chatID)
	if err != nil {
		return false, err
	}
	return exists == c.RequireProfile, nil
}
