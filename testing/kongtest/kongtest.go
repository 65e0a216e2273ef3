// Package kongtest helps test kong command lines without exiting the test binary.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

// Help renders the --help output of cli under name.
func Help(t *testing.T, name string, cli interface{}) string {
	t.Helper()
	w := bytes.NewBuffer(nil)
	rc := -1
	app, err := kong.New(cli,
		kong.Name(name),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.Assert(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(rc, 0))

	return w.String()
}

// Parse parses args into cli and returns the selected command, like "run <params>".
func Parse(t *testing.T, cli interface{}, args ...string) (string, error) {
	t.Helper()
	w := bytes.NewBuffer(nil)
	app, err := kong.New(cli,
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			t.Errorf("parse exited with %d: %s", i, w.String())
		}),
	)
	assert.Assert(t, err)

	kctx, err := app.Parse(args)
	if err != nil {
		return "", err
	}
	return kctx.Command(), nil
}
