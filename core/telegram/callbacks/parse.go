// Package callbacks decodes the callback data telebot puts on inline buttons.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits a callback into its unique key and payload.
// Buttons built with ReplyMarkup.Data carry "\f<unique>|<payload>"; telebot
// only strips that prefix when a handler is bound to the unique itself, so a
// generic OnCallback handler sees the raw form.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}
