package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	coreconfig "github.com/m3rciful/soulbot/core/config"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

// outputs owns the async writer and the sinks it fans out to.
type outputs struct {
	writer  *asyncWriter
	closers []io.Closer
}

func openOutputs(cfg *coreconfig.Config) (*outputs, error) {
	writers, closers, err := buildOutputs(cfg)
	if err != nil {
		return nil, err
	}
	return &outputs{writer: newAsyncWriter(writers, 64*1024), closers: closers}, nil
}

func (o *outputs) close() error {
	errs := []error{o.writer.Flush(), o.writer.Close()}
	for _, c := range o.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// buildOutputs always writes to stdout and, when logging.dir and logging.file
// are set, to a size-rotated file as well.
func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	if cfg == nil {
		return writers, nil, nil
	}
	lc := cfg.Logging
	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.File)
	if dir == "" || file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", dir, err)
	}
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    positiveOr(lc.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(lc.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(lc.MaxAgeDays, defaultMaxAgeDays),
		Compress:   lc.Compress,
	}
	return append(writers, rotating), []io.Closer{rotating}, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
