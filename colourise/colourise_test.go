package colourise

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestApplyColour(t *testing.T) {
	a := ApplyColour("runner: start")
	assert.Check(t, cmp.Equal(a, ApplyColour("runner: start")), "colours are stable")
	assert.Check(t, strings.HasPrefix(a, "\033[1;38;5;"))
	assert.Check(t, strings.HasSuffix(a, "runner: start\033[0m"))
}

func TestColours(t *testing.T) {
	for _, c := range colours {
		assert.Check(t, c >= 21 && c <= 231, c)
		assert.Check(t, c < 52 || c > 62, c)
	}
}

func TestErrorHighlight(t *testing.T) {
	assert.Check(t, cmp.Equal(ErrorHighlight("error"), "\033[1;37;41merror\033[0m"))
}
