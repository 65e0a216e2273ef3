package ports

import (
	"errors"
	"net"
	"strconv"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestCheckFree(t *testing.T) {
	t.Run("No ports is trivially free", func(t *testing.T) {
		assert.Check(t, CheckFree())
	})

	t.Run("Free ports pass and stay free", func(t *testing.T) {
		free, err := Free(2)
		assert.Assert(t, err)
		assert.Check(t, CheckFree(free...))
		assert.Check(t, CheckFree(free...))
	})

	t.Run("A bound port is reported by number", func(t *testing.T) {
		free, err := Free(2)
		assert.Assert(t, err)

		ln, err := net.Listen("tcp", net.JoinHostPort(Host, strconv.Itoa(free[1])))
		assert.Assert(t, err)
		defer ln.Close()

		err = CheckFree(free...)
		assert.Check(t, cmp.ErrorIs(err, ErrPortUnavailable))

		var ue *UnavailableError
		assert.Assert(t, errors.As(err, &ue))
		assert.Check(t, cmp.Equal(ue.Port, free[1]))
		assert.Check(t, cmp.ErrorContains(err, "port "+strconv.Itoa(free[1])+" already in use"))
	})
}

func TestFree(t *testing.T) {
	free, err := Free(3)
	assert.Assert(t, err)
	assert.Check(t, cmp.Len(free, 3))

	seen := map[int]bool{}
	for _, p := range free {
		assert.Check(t, p > 0)
		assert.Check(t, !seen[p], "duplicate port %d", p)
		seen[p] = true
	}
}
