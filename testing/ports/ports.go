// Package ports checks that the fixed TCP ports a test process expects to bind are free.
//
// The check is advisory. Another process can still take a port between the check and
// the launch of the process that wants it.
package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrPortUnavailable matches every UnavailableError with errors.Is.
var ErrPortUnavailable = errors.New("port unavailable")

// Host is the interface each port is bound on.
const Host = "127.0.0.1"

// UnavailableError names the first port that could not be bound and why.
type UnavailableError struct {
	Port int
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("port %d already in use: %v", e.Port, e.Err)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrPortUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// CheckFree momentarily binds each port on the loopback interface, in order, and
// releases it. The first port that cannot be bound is reported as an *UnavailableError.
// Another process can still take a port between this check and its use.
func CheckFree(ports ...int) error {
	for _, port := range ports {
		ln, err := net.Listen("tcp", net.JoinHostPort(Host, strconv.Itoa(port)))
		if err != nil {
			return &UnavailableError{Port: port, Err: err}
		}
		_ = ln.Close()
	}
	return nil
}

// Free asks the kernel for n distinct unused ports. They are released before returning.
func Free(n int) ([]int, error) {
	lns := make([]net.Listener, 0, n)
	defer func() {
		for _, ln := range lns {
			_ = ln.Close()
		}
	}()

	ports := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(Host, "0"))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate port: %w", err)
		}
		lns = append(lns, ln)
		ports = append(ports, ln.Addr().(*net.TCPAddr).Port)
	}
	return ports, nil
}
