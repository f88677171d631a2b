// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds the version call Available uses, so a hung daemon
// counts as unavailable instead of blocking engine selection.
const probeTimeout = 10 * time.Second

type (
	// cliProfile holds what differs between the supported engine CLIs.
	cliProfile struct {
		engine EngineType
		// versionFormat is the Go template passed to `<engine> version --format`.
		versionFormat string
	}

	// cliEngine implements Name, Available and Version for a profile on top of
	// BaseCLIEngine, which provides Pull and Save.
	cliEngine struct {
		*BaseCLIEngine
		profile cliProfile
	}

	// DockerEngine drives the docker CLI.
	DockerEngine struct {
		cliEngine
	}

	// PodmanEngine drives the podman CLI.
	PodmanEngine struct {
		cliEngine
	}
)

var (
	// docker reports the daemon version; a missing daemon fails the probe.
	dockerProfile = cliProfile{engine: EngineTypeDocker, versionFormat: "{{.Server.Version}}"}
	podmanProfile = cliProfile{engine: EngineTypePodman, versionFormat: "{{.Version}}"}
)

// NewDockerEngine creates a docker engine. The binary is looked up on PATH
// unless WithBinaryPath is given.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	return &DockerEngine{cliEngine: newCLIEngine(dockerProfile, opts)}
}

// NewPodmanEngine creates a podman engine. The binary is looked up on PATH
// unless WithBinaryPath is given.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	return &PodmanEngine{cliEngine: newCLIEngine(podmanProfile, opts)}
}

func newCLIEngine(p cliProfile, opts []BaseCLIEngineOption) cliEngine {
	path, _ := exec.LookPath(string(p.engine))
	all := append([]BaseCLIEngineOption{WithName(string(p.engine))}, opts...)
	return cliEngine{BaseCLIEngine: NewBaseCLIEngine(path, all...), profile: p}
}

// Name returns the engine name.
func (e cliEngine) Name() string {
	return string(e.profile.engine)
}

// Available reports whether the binary exists and answers a version query.
func (e cliEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return e.CreateCommand(ctx, "version", "--format", e.profile.versionFormat).Run() == nil
}

// Version returns the version string the engine reports.
func (e cliEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", e.profile.versionFormat)
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", e.profile.engine, err)
	}
	return strings.TrimSpace(out), nil
}
