package logger

import (
	"bufio"
	"io"
	"sync"
)

// entry is a queued line, or a flush request when ack is set.
type entry struct {
	line []byte
	ack  chan error
}

// asyncWriter moves formatted lines off the logging goroutine. A single loop
// owns the buffered output and flushes whenever the queue runs dry.
type asyncWriter struct {
	queue chan entry
	done  chan struct{}
	out   *bufio.Writer

	// gate keeps sends and close from racing on the queue.
	gate   sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	w := &asyncWriter{
		queue: make(chan entry, 256),
		done:  make(chan struct{}),
		out:   bufio.NewWriterSize(io.MultiWriter(sinks...), bufSize),
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for e := range w.queue {
		if e.ack != nil {
			e.ack <- w.out.Flush()
			continue
		}
		_, err := w.out.Write(e.line)
		w.record(err)
		if len(w.queue) == 0 {
			w.record(w.out.Flush())
		}
	}
	w.record(w.out.Flush())
}

// Write queues a copy of p. It blocks when the queue is full so no line is lost.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	w.queue <- entry{line: append([]byte(nil), p...)}
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.gate.RLock()
	if w.closed {
		w.gate.RUnlock()
		return w.failure()
	}
	ack := make(chan error, 1)
	w.queue <- entry{ack: ack}
	w.gate.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.gate.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.gate.Unlock()
	<-w.done
	return w.failure()
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
