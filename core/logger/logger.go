// Package logger is the structured slog setup of the bot: one line per event
// with a fixed key order, written asynchronously to stdout and an optional
// rotated file.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/soulbot/core/buildinfo"
	coreconfig "github.com/m3rciful/soulbot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	sinks *outputs

	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(1, 50)
	// traceAll disables debug sampling; set from LOG_TRACE.
	traceAll bool

	// L is the base logger. It stays nil until InitLogger runs, and every
	// helper in this package is a no-op while it is nil.
	L *slog.Logger
)

// options is the logging section of the config resolved to concrete values.
type options struct {
	format  logFormat
	order   []string
	level   slog.Level
	sample  [2]int
	profile string
}

func resolveOptions(cfg *coreconfig.Config) options {
	o := options{
		format:  formatJSON,
		order:   append([]string(nil), defaultKeyOrder...),
		level:   slog.LevelInfo,
		sample:  [2]int{1, 50},
		profile: "prod",
	}
	if cfg == nil {
		return o
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		o.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		o.format = formatKV
	case "json":
	default:
		if o.profile == "debug" || o.profile == "dev" {
			o.format = formatKV
		}
	}
	if keys := splitList(lc.KeysOrder); len(keys) > 0 && lc.KeysOrder != "default" {
		o.order = keys
	}
	if name, ok := allowedLevels[strings.ToLower(strings.TrimSpace(lc.Level))]; ok {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(name)); err == nil {
			o.level = lvl
		}
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		// An unparsable spec disables sampling rather than silencing debug.
		num, den := parseRatioSpec(spec)
		o.sample = [2]int{num, den}
	}
	return o
}

// InitLogger configures the global structured logger. Only the first call
// has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		o := resolveOptions(cfg)
		levelVar.Set(o.level)
		debugSampler.Set(o.sample[0], o.sample[1])
		traceAll = isTruthy(os.Getenv("LOG_TRACE"))

		if sinks, err = openOutputs(cfg); err != nil {
			return
		}
		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   sinks.writer,
			format:   o.format,
			keyOrder: o.order,
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", o.profile),
		)
	})
	return err
}

// Shutdown flushes buffered output and closes the sinks. Later calls are no-ops.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		if sinks != nil {
			err = sinks.close()
		}
	})
	return err
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs through logg (or L) with the event attribute first.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs one event for component at level.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
