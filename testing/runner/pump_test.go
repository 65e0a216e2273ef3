package runner

import (
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/testdriver/internal/linequeue"
)

func TestPump(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q := linequeue.New()
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	p := startPump(q, outR, errR)

	go func() {
		_, _ = io.WriteString(outW, "out-line\nsecond ")
		_, _ = io.WriteString(outW, "half\n")
		_, _ = io.WriteString(outW, "no newline")
		_ = outW.Close()
	}()
	go func() {
		_, _ = io.WriteString(errW, "err-line\n\xffbad\n")
		_ = errW.Close()
	}()

	assert.Check(t, p.Wait())

	lines := q.Drain()
	joined := strings.Join(lines, "")
	assert.Check(t, cmp.Len(lines, 5))
	assert.Check(t, cmp.Contains(joined, "out-line\n"))
	assert.Check(t, cmp.Contains(joined, "second half\n"))
	assert.Check(t, cmp.Contains(joined, "err-line\n"))
	assert.Check(t, cmp.Contains(joined, "\uFFFDbad\n"))
	assert.Check(t, cmp.Contains(joined, "no newline"))
}

func TestPump_ClosesStreams(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	q := linequeue.New()
	r, w := io.Pipe()
	p := startPump(q, r)
	assert.Check(t, w.Close())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not finish")
	}

	// the reader end has been closed by the pump
	_, err := w.Write([]byte("late\n"))
	assert.Check(t, cmp.ErrorIs(err, io.ErrClosedPipe))
}
