package broker

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is wrapped by runtimes when the container no longer exists.
	ErrNotFound = errors.New("container not found")
	// ErrNotRunning is wrapped by runtimes when the container exists but has stopped.
	ErrNotRunning = errors.New("container not running")
)

// RunSpec describes the container to run.
type RunSpec struct {
	Image        string
	Env          []string
	InternalPort int
	HostIP       string
	// HostPort of 0 lets the runtime pick an ephemeral port.
	HostPort int
}

// Runtime is the small slice of a container runtime the driver needs. Containers are
// run detached and removed by the runtime once they stop.
type Runtime interface {
	Run(ctx context.Context, spec RunSpec) (id string, err error)
	Logs(ctx context.Context, id string) ([]byte, error)
	HostPort(ctx context.Context, id string, internalPort int) (int, error)
	Kill(ctx context.Context, id string) error
}
