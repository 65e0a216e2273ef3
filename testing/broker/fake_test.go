package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeRuntime hands out ports from 40000 upwards and removes containers on kill,
// like an auto-removing Docker container would be.
type fakeRuntime struct {
	mu         sync.Mutex
	nextID     int
	nextPort   int
	containers map[string]*fakeContainer
	runs       []RunSpec

	// readyAfter is the number of log reads before the marker shows up
	readyAfter  int
	marker      string
	runErr      error
	killErr     error
	hostPortErr error
}

type fakeContainer struct {
	port     int
	running  bool
	logReads int
}

func newFakeRuntime(marker string) *fakeRuntime {
	return &fakeRuntime{
		nextPort:   40000,
		containers: map[string]*fakeContainer{},
		marker:     marker,
	}
}

func (f *fakeRuntime) Run(_ context.Context, spec RunSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs = append(f.runs, spec)
	if f.runErr != nil {
		return "", f.runErr
	}

	port := spec.HostPort
	if port == 0 {
		port = f.nextPort
		f.nextPort++
	}
	for _, c := range f.containers {
		if c.running && c.port == port {
			return "", fmt.Errorf("port %d is already allocated", port)
		}
	}

	f.nextID++
	id := fmt.Sprintf("container-%d", f.nextID)
	f.containers[id] = &fakeContainer{port: port, running: true}
	return id, nil
}

func (f *fakeRuntime) Logs(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.logReads++
	if c.logReads > f.readyAfter {
		return []byte("booting\n" + f.marker + "\n"), nil
	}
	return []byte("booting\n"), nil
}

func (f *fakeRuntime) HostPort(_ context.Context, id string, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hostPortErr != nil {
		return 0, f.hostPortErr
	}
	c, ok := f.containers[id]
	if !ok {
		return 0, ErrNotFound
	}
	if !c.running {
		return 0, ErrNotRunning
	}
	return c.port, nil
}

func (f *fakeRuntime) Kill(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.killErr != nil {
		return f.killErr
	}
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("no such container %s: %w", id, ErrNotFound)
	}
	if !c.running {
		return ErrNotRunning
	}
	delete(f.containers, id)
	return nil
}

// vanish removes a container behind the driver's back.
func (f *fakeRuntime) vanish(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, id)
}

func (f *fakeRuntime) lastRun() RunSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[len(f.runs)-1]
}

var errDaemonDown = errors.New("cannot connect to the docker daemon")
