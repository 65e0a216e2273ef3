/*
Package healthcheck contains a simple healthcheck handler. In addition to the /live and
/ready endpoints a process driver's probe port serves, it also allows access to the Go
runtime's standard pprof functionality.
*/
package healthcheck
