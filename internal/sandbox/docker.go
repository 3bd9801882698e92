// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package sandbox runs validation commands inside a throwaway Docker
// container so a broken test suite cannot touch the host checkout.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

const stopTimeout = 10 * time.Second

// Runner manages container lifecycle for sandboxed command execution.
type Runner struct {
	client *client.Client
	image  string
}

// NewRunner creates a runner using the environment's Docker daemon.
func NewRunner(image string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Runner{client: cli, image: image}, nil
}

// Close releases the Docker client connection.
func (r *Runner) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Run executes the command in a fresh container with repoPath mounted at
// /workspace, waits for it to exit, and returns the exit code and combined
// output. The container is always removed, even on error.
func (r *Runner) Run(ctx context.Context, repoPath, command string) (int, string, error) {
	created, err := r.client.ContainerCreate(ctx,
		&container.Config{
			Image:      r.image,
			Cmd:        []string{"sh", "-c", command},
			WorkingDir: "/workspace",
		},
		&container.HostConfig{
			Binds:      []string{repoPath + ":/workspace"},
			AutoRemove: false,
		},
		nil, nil, "")
	if err != nil {
		return -1, "", fmt.Errorf("failed to create container: %w", err)
	}
	containerID := created.ID
	defer r.remove(containerID)

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return -1, "", fmt.Errorf("failed to start container: %w", err)
	}

	waitCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	var exitCode int
	select {
	case res := <-waitCh:
		exitCode = int(res.StatusCode)
	case err := <-errCh:
		return -1, "", fmt.Errorf("container wait failed: %w", err)
	case <-ctx.Done():
		return -1, "", fmt.Errorf("sandbox run cancelled: %w", ctx.Err())
	}

	output, err := r.logs(ctx, containerID)
	if err != nil {
		return exitCode, "", err
	}
	return exitCode, output, nil
}

func (r *Runner) logs(ctx context.Context, containerID string) (string, error) {
	rc, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to read container logs: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to drain container logs: %w", err)
	}
	return string(data), nil
}

// remove is idempotent cleanup; a container that is already gone is fine.
func (r *Runner) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	timeout := int(stopTimeout.Seconds())
	_ = r.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	_ = r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
}
