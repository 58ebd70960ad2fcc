package logger

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/soulbot/core/config"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func flushLine(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "dispatch")
	LogEvent(ctx, log, slog.LevelInfo, "event.handled",
		slog.String("status", "ok"),
		slog.String("kind", "interaction"),
	)

	tokens := strings.Split(flushLine(t, aw, buf), " ")
	expected := []string{"ts=", "level=INFO", "component=dispatch", "event=event.handled", "status=ok", "rid=rid-123"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		require.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "store")
	LogEvent(ctx, log, slog.LevelError, "profile.upsert",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	line := flushLine(t, aw, buf)
	require.True(t, strings.HasPrefix(line, "{"))
	pos := -1
	for _, pref := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"store"`, `"event":"profile.upsert"`, `"status":"fail"`, `"rid":"rid-json"`} {
		idx := strings.Index(line, pref)
		require.Greaterf(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	rawRID := "123:456:789"
	ctx := WithRID(Background(), rawRID)
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test", slog.String("status", "ok"))

	line := flushLine(t, aw, buf)
	require.Contains(t, line, "rid="+CompactRID(rawRID))
	require.NotContains(t, line, "rid_full=")
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	ctx := WithRID(Background(), rawRID)
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "rid.test", slog.String("status", "ok"))

	line := flushLine(t, aw, buf)
	require.Contains(t, line, `"rid":"`+CompactRID(rawRID)+`"`)
	require.Contains(t, line, `"rid_full":"`+rawRID+`"`)
	require.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerStateAndKind(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithState(Background(), "view_profile")
	LogEvent(ctx, slog.New(handler), slog.LevelInfo, "event.handled",
		slog.String("kind", "Photo"),
		slog.String("outcome", "bogus"),
	)

	line := flushLine(t, aw, buf)
	require.Contains(t, line, "state=view_profile")
	require.Contains(t, line, "kind=photo")
	require.NotContains(t, line, "outcome=")
}

func TestBuildOutputsRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{Dir: dir, File: "bot.log"}}

	writers, closers, err := buildOutputs(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	require.Len(t, closers, 1)

	_, err = writers[1].Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, closers[0].Close())

	data, err := os.ReadFile(filepath.Join(dir, "bot.log"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestStatusEnumeration(t *testing.T) {
	require.Equal(t, "ok", Status(nil))
	require.Equal(t, "fail", Status(io.EOF))
}

func TestMetaAccumulates(t *testing.T) {
	ctx := WithRID(Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "text")
	ctx = WithState(ctx, "")

	require.Equal(t, Meta{RID: "1:2:3", UpdateID: 1, UserID: 3, ChatID: 2, Handler: "text"}, MetaFrom(ctx))
	require.Equal(t, "1.2.3", CompactRID("1:2:3"))
	require.Equal(t, "a:b", CompactRID(" a:b "))
}

func TestSanitizeLimit(t *testing.T) {
	require.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	require.Equal(t, "привет", SanitizeLimit("привет мир", 6))
	require.Empty(t, SanitizeLimit("abc", 0))
}

func TestResolveOptions(t *testing.T) {
	o := resolveOptions(nil)
	require.Equal(t, formatJSON, o.format)
	require.Equal(t, slog.LevelInfo, o.level)
	require.Equal(t, [2]int{1, 50}, o.sample)

	o = resolveOptions(&coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "warning",
		Profile:     "Dev",
		KeysOrder:   "ts, event ,level",
		DebugSample: "bogus",
	}})
	require.Equal(t, formatKV, o.format)
	require.Equal(t, slog.LevelWarn, o.level)
	require.Equal(t, "dev", o.profile)
	require.Equal(t, []string{"ts", "event", "level"}, o.order)
	require.Equal(t, [2]int{0, 0}, o.sample)
}
