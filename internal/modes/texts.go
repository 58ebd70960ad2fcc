package modes

import (
	"fmt"
	"strings"

	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/store"
)

// Interaction actions. They double as telebot callback uniques.
const (
	ActionCategory     = "cat"
	ActionCategoryDone = "cat_done"
	ActionEdit         = "edit"
	ActionLike         = "like"
	ActionNext         = "next"
	ActionAccept       = "accept"
	ActionReject       = "reject"
	// ActionInbox opens the like inbox from any message.
	ActionInbox = "inbox"
)

// Actions lists every interaction action the modes produce.
func Actions() []string {
	return []string{
		ActionCategory, ActionCategoryDone, ActionEdit, ActionLike,
		ActionNext, ActionAccept, ActionReject, ActionInbox,
	}
}

const (
	textNeedUsername   = "You need a public Telegram username to create a profile. Set one in Telegram settings and send /start again."
	textNoCategories   = "Pick your interests and press Done."
	textPickCategory   = "Choose at least one interest."
	textUnknownChoice  = "This option is not available."
	textUseButtons     = "Use the buttons above."
	textAskName        = "What is your name?"
	textNameEmpty      = "Name can't be empty."
	textNameTooLong    = "Name must be at most 16 characters."
	textNameCommand    = "Name can't start with /."
	textAskAge         = "How old are you?"
	textAgeInvalid     = "Age must be a number between 7 and 79."
	textAskDescription = "Write something about yourself (at least 100 characters)."
	textDescTooShort   = "Description is too short: %d of %d characters."
	textAskPhoto       = "Send a photo."
	textPhotoMissing   = "Send a photo, please."
	textProfileSaved   = "Your profile is saved. /find to browse, /profile to view it."
	textNoProfile      = "You have no profile yet. Send /start to create one."
	textNothingLeft    = "Nothing left to show. Come back later."
	textLiked          = "Liked"
	textInboxEmpty     = "No new likes."
	textMatch          = "It's a match! Write to %s"
	textNewLike        = "Someone liked your profile."
	textMatchNotice    = "%s accepted your like! Write to %s"
	textDone           = "Done"
	textEdit           = "Edit"
	textLike           = "❤️"
	textNext           = "👎"
	textAccept         = "❤️"
	textReject         = "👎"
	textOpenInbox      = "📤"
)

// NewLikeNotice is the notice delivered to a liked chat.
func NewLikeNotice() chat.Notice {
	return chat.Notice{
		Text:     textNewLike,
		Keyboard: chat.Keyboard{chat.Row(chat.Button{Text: textOpenInbox, Action: ActionInbox})},
	}
}

// MatchNotice is the notice delivered to the liker once the like is accepted by p.
func MatchNotice(p store.Profile) chat.Notice {
	return chat.Notice{Text: fmt.Sprintf(textMatchNotice, p.Name, handle(p))}
}

func handle(p store.Profile) string {
	if u := strings.TrimPrefix(strings.TrimSpace(p.Username), "@"); u != "" {
		return "@" + u
	}
	return p.Name
}

func caption(p store.Profile, categories []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %d", p.Name, p.Age)
	if len(categories) > 0 {
		b.WriteString("\n")
		for i, c := range categories {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + c)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(p.Description)
	return b.String()
}

// action returns the button action of an interaction event, or "".
func action(ev chat.Event) string {
	if ev.Kind != chat.EventInteraction || ev.Interaction == nil {
		return ""
	}
	return ev.Interaction.Action
}

func browseKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(
		chat.Button{Text: textLike, Action: ActionLike},
		chat.Button{Text: textNext, Action: ActionNext},
	)}
}

func inboxKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(
		chat.Button{Text: textAccept, Action: ActionAccept},
		chat.Button{Text: textReject, Action: ActionReject},
	)}
}

func editKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(chat.Button{Text: textEdit, Action: ActionEdit})}
}
