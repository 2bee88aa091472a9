package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type AsyncLoggerTest struct {
	suite.Suite
}

func TestAsyncLoggerSuite(t *testing.T) {
	suite.Run(t, new(AsyncLoggerTest))
}

type recordingWriter struct {
	mu     sync.Mutex
	lines  [][]byte
	closed bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) snapshot() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.lines...)
}

func (t *AsyncLoggerTest) TestWriteReachesUnderlyingWriter() {
	rw := &recordingWriter{}
	a := NewAsyncLogger(rw, 10)
	defer a.Close()

	n, err := a.Write([]byte("hello"))
	t.NoError(err)
	t.Equal(5, n)

	t.Eventually(func() bool {
		return len(rw.snapshot()) == 1
	}, time.Second, time.Millisecond)
}

func (t *AsyncLoggerTest) TestWriteDropsWhenBufferFull() {
	rw := &blockingWriter{unblock: make(chan struct{})}
	a := NewAsyncLogger(rw, 1)

	// The first write is consumed by the background goroutine and blocks
	// there; the second fills the one-slot channel; the third must be
	// dropped instead of blocking the caller.
	_, err := a.Write([]byte("first"))
	t.NoError(err)
	_, err = a.Write([]byte("second"))
	t.NoError(err)

	done := make(chan struct{})
	go func() {
		a.Write([]byte("third"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fail("Write blocked instead of dropping when the buffer was full")
	}

	close(rw.unblock)
	a.Close()
}

type blockingWriter struct {
	unblock chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.unblock
	return len(p), nil
}

func (t *AsyncLoggerTest) TestCloseClosesUnderlyingWriter() {
	rw := &recordingWriter{}
	a := NewAsyncLogger(rw, 4)
	t.NoError(a.Close())
	t.True(rw.closed)
}

func (t *AsyncLoggerTest) TestCloseIsSafeWithoutIoCloser() {
	a := NewAsyncLogger(discardWriter{}, 4)
	t.NoError(a.Close())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
