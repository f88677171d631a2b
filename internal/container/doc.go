// SPDX-License-Identifier: MPL-2.0

// Package container provides the container engine collaborator used to fetch artifacts.
//
// The Engine interface covers what artifact fetching needs from a container engine:
// Pull, Save (to a docker-save archive), version reporting and availability checks.
// DockerEngine and PodmanEngine differ only in their CLI profile; both build on
// BaseCLIEngine for argument construction and command execution.
//
// Engine selection uses NewEngine(EngineType) with automatic fallback if the preferred
// engine is unavailable.
package container
