package kongtest

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestHelp(t *testing.T) {
	type cli struct {
		StringVar   string        `default:"string-default" env:"STRING_VAR" help:"A string."`
		IntVar      int           `default:"123" env:"INT_VAR"`
		DurationVar time.Duration `default:"10s" env:"DURATION_VAR"`
	}

	c := cli{}
	s := Help(t, "test-app", &c)
	assert.Check(t, cmp.Contains(s, "Usage: test-app"))
	assert.Check(t, cmp.Contains(s, "--string-var"))
	assert.Check(t, cmp.Contains(s, "A string."))
	assert.Check(t, cmp.Contains(s, "$DURATION_VAR"))
	assert.Check(t, cmp.DeepEqual(c, cli{
		StringVar:   "string-default",
		IntVar:      123,
		DurationVar: 10 * time.Second,
	}))
}

func TestParse(t *testing.T) {
	type cli struct {
		Start struct {
			Port int `default:"8000"`
		} `cmd:""`
		Stop struct{} `cmd:""`
	}

	t.Run("Selects the command", func(t *testing.T) {
		c := cli{}
		cmd, err := Parse(t, &c, "start", "--port", "8072")
		assert.Assert(t, err)
		assert.Check(t, cmp.Equal(cmd, "start"))
		assert.Check(t, cmp.Equal(c.Start.Port, 8072))
	})

	t.Run("Bad values are errors", func(t *testing.T) {
		c := cli{}
		_, err := Parse(t, &c, "start", "--port", "eighty")
		assert.Check(t, cmp.ErrorContains(err, "--port"))
	})
}
