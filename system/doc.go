/*
Package system manages the startup, running, metrics and shutdown of the small services
the harness runs, such as the receiver stub and the test service.

Services are functions that block until their context is done. Run starts them all in an
errgroup alongside a signal handler, so a SIGTERM from a process driver shuts every
server down cleanly.
*/
package system
