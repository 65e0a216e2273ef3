/*
Package httpserver contains helpers for running the HTTP servers the harness launches
as test processes.

There are tools for:
- observability (both for requests and connection info)
- health checks
*/
package httpserver
