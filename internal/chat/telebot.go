package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/core/telegram/keyboard"
	"github.com/m3rciful/soulbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// TelebotMessenger implements Messenger on top of a telebot bot.
// Sends are synchronous because the caller needs the delivered message reference;
// interaction answers are best-effort and go through the outbound job queue.
type TelebotMessenger struct {
	bot   *tele.Bot
	queue *sender.Queue
}

// NewTelebotMessenger wraps bot. queue may be nil, answers are then sent inline.
func NewTelebotMessenger(bot *tele.Bot, queue *sender.Queue) *TelebotMessenger {
	return &TelebotMessenger{bot: bot, queue: queue}
}

// SendText sends plain text with an optional inline keyboard.
func (m *TelebotMessenger) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error) {
	msg, err := m.bot.Send(tele.ChatID(chatID), text, sendOptions(kb))
	if err != nil {
		return MessageRef{}, fmt.Errorf("chat: send text: %w", err)
	}
	return refOf(msg, chatID, !kb.Empty()), nil
}

// SendPhoto sends a photo by file id with a caption and an optional inline keyboard.
func (m *TelebotMessenger) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, kb Keyboard) (MessageRef, error) {
	photo := &tele.Photo{File: tele.File{FileID: photoRef}, Caption: caption}
	msg, err := m.bot.Send(tele.ChatID(chatID), photo, sendOptions(kb))
	if err != nil {
		return MessageRef{}, fmt.Errorf("chat: send photo: %w", err)
	}
	return refOf(msg, chatID, !kb.Empty()), nil
}

// EditReplyMarkup replaces or removes the inline keyboard of a delivered message.
func (m *TelebotMessenger) EditReplyMarkup(ctx context.Context, ref MessageRef, kb Keyboard) error {
	if ref.IsZero() {
		return nil
	}
	sig := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	var markup *tele.ReplyMarkup
	if !kb.Empty() {
		markup = toMarkup(kb)
	}
	if _, err := m.bot.EditReplyMarkup(sig, markup); err != nil {
		return fmt.Errorf("chat: edit reply markup: %w", err)
	}
	return nil
}

// Answer acknowledges a callback query.
func (m *TelebotMessenger) Answer(ctx context.Context, interactionID, text string) error {
	if interactionID == "" {
		return nil
	}
	run := func() error {
		return m.bot.Respond(&tele.Callback{ID: interactionID}, &tele.CallbackResponse{Text: text})
	}
	if m.queue == nil {
		return run()
	}
	if err := m.queue.Enqueue(ctx, "callback.answer", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", "callback.answer"),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func sendOptions(kb Keyboard) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if !kb.Empty() {
		opts.ReplyMarkup = toMarkup(kb)
	}
	return opts
}

func toMarkup(kb Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Payload})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func refOf(msg *tele.Message, chatID int64, hasKeyboard bool) MessageRef {
	if msg == nil {
		return MessageRef{}
	}
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return MessageRef{ChatID: chatID, MessageID: msg.ID, HasKeyboard: hasKeyboard}
}
