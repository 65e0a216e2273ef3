/*
Package httprecorder records every request sent to an HTTP handler so a test can
later assert on what a service under test sent.

The receiver stub records with the ginrecorder middleware and serves the
recordings back as JSON, so recordings also work across a process boundary.
*/
package httprecorder
