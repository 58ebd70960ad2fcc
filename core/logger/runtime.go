package logger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Meta is the request metadata carried in a context and stamped on every
// line logged with it.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	State    string
}

type metaKey struct{}

// MetaFrom returns the metadata stored in ctx, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithMeta replaces the metadata of ctx.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

func editMeta(ctx context.Context, fn func(*Meta)) context.Context {
	m := MetaFrom(ctx)
	fn(&m)
	return WithMeta(ctx, m)
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return editMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta sets the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return editMeta(ctx, func(m *Meta) {
		m.UpdateID, m.UserID, m.ChatID = updateID, userID, chatID
	})
}

// WithHandler names the handler serving the update. An empty name keeps ctx.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" && ctx != nil {
		return ctx
	}
	return editMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithState names the conversation state handling the event. An empty name keeps ctx.
func WithState(ctx context.Context, state string) context.Context {
	if state == "" && ctx != nil {
		return ctx
	}
	return editMeta(ctx, func(m *Meta) { m.State = state })
}

// fields returns the non-zero metadata as log fields.
func (m Meta) fields() map[string]any {
	out := make(map[string]any, 6)
	put := func(k string, v any, zero bool) {
		if !zero {
			out[k] = v
		}
	}
	put("rid", m.RID, m.RID == "")
	put("state", m.State, m.State == "")
	put("user_id", m.UserID, m.UserID == 0)
	put("update_id", m.UpdateID, m.UpdateID == 0)
	put("chat_id", m.ChatID, m.ChatID == 0)
	put("handler", m.Handler, m.Handler == "")
	return out
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and keeps at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}

// BuildRID returns a correlation id of the form updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites a BuildRID value as dot-separated base36 segments.
// Anything else is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
