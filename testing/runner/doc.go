/*
Package runner drives a server process for the length of an integration test.

A Driver is built from a Profile, which names the fixed ports the process needs, the
command to launch (with a coverage instrumented variant) and the marker line the
process prints once it is ready. New checks the ports are free before anything is
spawned. Start launches the process, drains its stdout and stderr in the background
so it can never block on a full pipe, and waits a bounded time for the marker. A
missing marker is not an error: the test's own assertions will find a server that
never came up.

	d, err := runner.New(ctx, runner.Server())
	if err != nil {
		return err
	}
	defer d.Stop(ctx)

	err = d.Start(ctx, []string{"--port", "8000"}, false)
	host, port, ok := d.Address(false)

Go services compiled with testing/compiler can be driven with the GoService profile.
Stop sends SIGTERM, so the service should shut down cleanly so a coverage report can
be flushed to disk.
*/
package runner
