package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestWarning(t *testing.T) {
	const msg = "process interrupted"

	origErr := NewWarning(msg)
	assert.Check(t, cmp.Equal(origErr.Error(), msg))
	assert.Check(t, IsWarning(origErr))

	err := fmt.Errorf("harness: %w", origErr)
	assert.Check(t, errors.Is(err, origErr), "one wrap")
	assert.Check(t, cmp.ErrorContains(err, msg))
	assert.Check(t, IsWarning(err))

	err = fmt.Errorf("run: %w", err)
	assert.Check(t, IsWarning(err), "two wraps")
}

func TestWarning_TwoWarningsNotIs(t *testing.T) {
	err1 := NewWarning("warning 1")
	err2 := NewWarning("warning 2")

	assert.Check(t, !errors.Is(err1, err2))
}

func TestWarning_PlainErrorIsNotWarning(t *testing.T) {
	assert.Check(t, !IsWarning(errors.New("boom")))
	assert.Check(t, !IsWarning(nil))
}

func TestDontErrorTrace(t *testing.T) {
	assert.Check(t, DontErrorTrace(NewWarning("warn")))
	assert.Check(t, DontErrorTrace(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Check(t, DontErrorTrace(context.Canceled))
	assert.Check(t, !DontErrorTrace(errors.New("real failure")))
}
