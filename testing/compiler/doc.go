/*
Package compiler helps efficiently compile and cleanup your services in acceptance tests.
The binaries are always stored in a temporary folder.

To instrument a binary with coverage, the main entry point package must include a TestRunMain
func in a test file behind the testrunmain build tag, as per the example in
internal/cmd/main_test.go. The work added to the compiler must set the WithCoverage flag.

For the resultant binary to produce a coverage report it needs to be called with the
arguments from CoverageArgs, and the service needs to be able to exit cleanly to flush the
report. The GoService profile in testing/runner does this for you.
*/
package compiler
