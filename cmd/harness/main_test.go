package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/testdriver/testing/kongtest"
	"github.com/circleci/testdriver/testing/ports"
	"github.com/circleci/testdriver/testing/runner"
)

func TestHelp(t *testing.T) {
	s := kongtest.Help(t, "harness", &cli{})
	assert.Check(t, cmp.Contains(s, "Usage: harness"))
	assert.Check(t, cmp.Contains(s, "broker"))
	assert.Check(t, cmp.Contains(s, "run"))
	assert.Check(t, cmp.Contains(s, "--o11y-format"))
}

func TestParse_Run(t *testing.T) {
	c := cli{}
	cmd, err := kongtest.Parse(t, &c, "run", "--profile=k8s", "--coverage", "--ports=9001,9002",
		"--", "--port", "9001", "--probe-port=9002")
	assert.Assert(t, err)
	assert.Check(t, cmp.Contains(cmd, "run"))
	assert.Check(t, cmp.Equal(c.Run.Profile, "k8s"))
	assert.Check(t, c.Run.Coverage)
	assert.Check(t, cmp.DeepEqual(c.Run.Ports, []int{9001, 9002}))
	assert.Check(t, cmp.DeepEqual(c.Run.params(), []string{"--port", "9001", "--probe-port=9002"}))
}

func TestParse_UnknownProfile(t *testing.T) {
	c := cli{}
	_, err := kongtest.Parse(t, &c, "run", "--profile=rails")
	assert.Check(t, cmp.ErrorContains(err, "--profile"))
}

func TestRunCmd_Profile(t *testing.T) {
	r := runCmd{Profile: "webhook", Command: "./receiver --banner hi", Ports: []int{9100}}
	p, err := r.profile()
	assert.Assert(t, err)
	assert.Check(t, cmp.DeepEqual(p.Command, []string{"./receiver", "--banner", "hi"}))
	assert.Check(t, cmp.Len(p.CoverageCommand, 0))
	assert.Check(t, cmp.DeepEqual(p.Ports, []int{9100}))
	assert.Check(t, cmp.Equal(p.Marker, runner.WebhookReceiver().Marker))

	_, err = (&runCmd{Profile: "nope"}).profile()
	assert.Check(t, cmp.ErrorContains(err, `unknown profile "nope"`))
}

func TestRun_StreamsUntilTheProcessExits(t *testing.T) {
	free, err := ports.Free(1)
	assert.Assert(t, err)

	script := filepath.Join(t.TempDir(), "service.sh")
	// language=sh
	err = os.WriteFile(script, []byte(`#!/bin/sh
echo "booting with $*"
echo "Started webhook receiver server"
echo "handled one request"
`), 0o700)
	assert.Assert(t, err)

	var stdout, stderr bytes.Buffer
	err = run([]string{
		"--o11y-format=none",
		"run", "--profile=webhook", "--command=" + script, "--ports=" + strconv.Itoa(free[0]),
		"--", "--port", strconv.Itoa(free[0]),
	}, &stdout, &stderr, func(int) {})
	assert.Assert(t, err, stderr.String())

	out := stdout.String()
	assert.Check(t, cmp.Contains(out, "ready: true"))
	assert.Check(t, cmp.Contains(out, "address: localhost:"+strconv.Itoa(free[0])))
	assert.Check(t, cmp.Contains(out, "booting with --port "+strconv.Itoa(free[0])))
	assert.Check(t, cmp.Contains(out, "handled one request"))
}

func TestRun_ReportsAFailingProcess(t *testing.T) {
	free, err := ports.Free(1)
	assert.Assert(t, err)

	script := filepath.Join(t.TempDir(), "failing.sh")
	err = os.WriteFile(script, []byte("#!/bin/sh\necho 'Started webhook receiver server'\nexit 3\n"), 0o700)
	assert.Assert(t, err)

	var stdout, stderr bytes.Buffer
	err = run([]string{
		"--o11y-format=none",
		"run", "--profile=webhook", "--command=" + script, "--ports=" + strconv.Itoa(free[0]),
	}, &stdout, &stderr, func(int) {})
	assert.Check(t, cmp.ErrorContains(err, "exit status 3"))
}
