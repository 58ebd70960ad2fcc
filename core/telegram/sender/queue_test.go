package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func fastOptions() Options {
	return Options{Workers: 1, QueueSize: 4, MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestQueueRetriesTransientErrors(t *testing.T) {
	q := NewQueue(fastOptions())
	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Enqueue(context.Background(), "answer", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		close(done)
		return nil
	}))
	<-done
	q.Close()
	require.EqualValues(t, 3, calls.Load())
	require.Zero(t, q.Failed())
}

func TestQueueDoesNotRetryPermanentErrors(t *testing.T) {
	q := NewQueue(fastOptions())
	var calls atomic.Int32
	require.NoError(t, q.Enqueue(context.Background(), "answer", func() error {
		calls.Add(1)
		return &tele.Error{Code: 400, Description: "Bad Request: query is too old"}
	}))
	q.Close()
	require.EqualValues(t, 1, calls.Load())
	require.EqualValues(t, 1, q.Failed())
}

func TestQueueFullAndClosed(t *testing.T) {
	q := NewQueue(Options{Workers: 1, QueueSize: 1, RetryBackoff: time.Millisecond})
	started := make(chan struct{})
	gate := make(chan struct{})
	require.NoError(t, q.Enqueue(context.Background(), "block", func() error {
		close(started)
		<-gate
		return nil
	}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), "queued", func() error { return nil }))
	require.ErrorIs(t, q.Enqueue(context.Background(), "overflow", func() error { return nil }), ErrQueueFull)

	close(gate)
	q.Close()
	require.ErrorIs(t, q.Enqueue(context.Background(), "late", func() error { return nil }), ErrQueueClosed)
	q.Close()
}

func TestFloodWaitHonoured(t *testing.T) {
	err := tele.FloodError{RetryAfter: 3}
	require.True(t, retryable(err))
	require.Equal(t, 3*time.Second, floodWait(err))
	require.Equal(t, "flood", classifyError(err))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:ABC-def_ghi/sendMessage": timeout`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, sanitizeErrorMessage(err))
}
