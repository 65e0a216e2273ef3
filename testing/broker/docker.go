package broker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/circleci/testdriver/o11y"
)

// Docker is a Runtime backed by the Docker Engine API.
type Docker struct {
	client *dockerclient.Client
}

// NewDocker connects using the usual DOCKER_HOST style environment.
func NewDocker() (*Docker, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Docker{client: cli}, nil
}

// Ping checks the daemon is reachable.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

func (d *Docker) Close() error {
	return d.client.Close()
}

// Run creates and starts the container, pulling the image first if it is missing.
func (d *Docker) Run(ctx context.Context, spec RunSpec) (id string, err error) {
	ctx, span := o11y.StartSpan(ctx, "docker: run")
	defer o11y.End(span, &err)
	span.AddField("image", spec.Image)
	span.AddField("host_port", spec.HostPort)

	port, err := nat.NewPort("tcp", strconv.Itoa(spec.InternalPort))
	if err != nil {
		return "", err
	}
	hostPort := ""
	if spec.HostPort != 0 {
		hostPort = strconv.Itoa(spec.HostPort)
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostConfig := &container.HostConfig{
		AutoRemove: true,
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: spec.HostIP, HostPort: hostPort}},
		},
	}

	resp, err := d.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if cerrdefs.IsNotFound(err) {
		err = d.pull(ctx, spec.Image)
		if err != nil {
			return "", err
		}
		resp, err = d.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	}
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}
	span.AddField("container_id", resp.ID)

	err = d.client.ContainerStart(ctx, resp.ID, container.StartOptions{})
	if err != nil {
		_ = d.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("starting container: %w", err)
	}
	return resp.ID, nil
}

func (d *Docker) pull(ctx context.Context, ref string) (err error) {
	ctx, span := o11y.StartSpan(ctx, "docker: pull")
	defer o11y.End(span, &err)
	span.AddField("image", ref)

	rc, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	defer rc.Close()

	// the pull only completes once the progress stream has been read to the end
	_, err = io.Copy(io.Discard, rc)
	return err
}

// Logs returns everything the container has written so far, stdout and stderr merged.
func (d *Docker) Logs(ctx context.Context, id string) ([]byte, error) {
	rc, err := d.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, classify(err)
	}
	defer rc.Close()

	// Docker multiplexes stdout/stderr with 8-byte frame headers.
	var buf bytes.Buffer
	_, err = stdcopy.StdCopy(&buf, &buf, rc)
	return buf.Bytes(), err
}

// HostPort returns the host port bound to internalPort/tcp.
func (d *Docker) HostPort(ctx context.Context, id string, internalPort int) (int, error) {
	info, err := d.client.ContainerInspect(ctx, id)
	if err != nil {
		return 0, classify(err)
	}
	if info.State == nil || !info.State.Running {
		return 0, fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	if info.NetworkSettings == nil {
		return 0, fmt.Errorf("container %s has no network settings", id)
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(internalPort))
	if err != nil {
		return 0, err
	}
	bindings := info.NetworkSettings.Ports[port]
	if len(bindings) == 0 {
		return 0, fmt.Errorf("container %s has no host binding for %s", id, port)
	}
	return strconv.Atoi(bindings[0].HostPort)
}

func (d *Docker) Kill(ctx context.Context, id string) error {
	return classify(d.client.ContainerKill(ctx, id, "KILL"))
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case cerrdefs.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case cerrdefs.IsConflict(err):
		// the daemon answers 409 for a container that is not running
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return err
}
