// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"sort"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	InvalidArtifactIdId
	ContainerEngineNotFoundId
	ArtifactFetchFailedId
	UnsafeLayerEntryId
	CacheProvisionFailedId
	RelativePathFailedId
	ConfigLoadFailedId
	TemplateCloneFailedId
	DependencyCycleId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation pages for the issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Manifest not found!

The scan did not find a single manifest under the working root, or a manifest
it listed was removed before it could be read.

## Things you can try:
- Run the command from the root of your workspace, or point at it:
~~~
$ nanoforge prep -C /path/to/workspace
~~~

- Check the configured manifest file name:
~~~
$ nanoforge config show
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse a manifest!

A Cargo.toml could not be decoded as TOML, or one of its nanoservice
declarations has the wrong shape.

## Common issues:
- Missing quotes around string values
- A nanoservice table without a ` + "`dev_image`" + ` key
- ` + "`features`" + ` given as a string instead of an array

## Example declaration:
~~~toml
[nanoservices.auth]
dev_image = "nanoservices/auth:latest"
prod_image = "nanoservices/auth:1.2.0"
entrypoint = "."
features = ["server"]
~~~`,
		extLinks: []HttpLink{
			"https://toml.io/en/v1.0.0",
		},
	}

	invalidArtifactIdIssue = &Issue{
		id: InvalidArtifactIdId,
		mdMsg: `
# Invalid artifact identifier!

The ` + "`dev_image`" + ` value is not a valid container image reference.

## Things you can try:
- Use the ` + "`repository/name:tag`" + ` form, for example:
~~~toml
dev_image = "nanoservices/auth:latest"
~~~
- Image names must be lowercase.`,
		extLinks: []HttpLink{
			"https://github.com/distribution/reference",
		},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Nanoservice artifacts are distributed as container images, and fetching them
needs Docker or Podman on your PATH.

## Things you can try:
- Install Docker: https://docs.docker.com/get-docker/
- Or install Podman: https://podman.io/getting-started/installation

- Select the engine in your config file:
~~~cue
container_engine: "podman"
~~~

- Or for a single run:
~~~
$ nanoforge prep --engine podman
~~~`,
	}

	artifactFetchFailedIssue = &Issue{
		id: ArtifactFetchFailedId,
		mdMsg: `
# Failed to fetch an artifact!

The image could not be pulled, saved, or unpacked into the cache.

## Things you can try:
- Check that the image exists and that you are logged in to its registry:
~~~
$ docker pull nanoservices/auth:latest
~~~

- Fetch a single artifact to see the full error:
~~~
$ nanoforge pull nanoservices/auth:latest -v
~~~`,
	}

	unsafeLayerEntryIssue = &Issue{
		id: UnsafeLayerEntryId,
		mdMsg: `
# Refused to unpack an image layer!

A layer contains an entry whose path escapes the target directory. The
artifact was not installed.

## Things you can try:
- Rebuild the image from a trusted base.
- Report the image to its publisher.`,
	}

	cacheProvisionFailedIssue = &Issue{
		id: CacheProvisionFailedId,
		mdMsg: `
# Failed to prepare the artifact cache!

The cache directory could not be wiped or created.

## Things you can try:
- Check the permissions of the cache directory.
- Move the cache somewhere writable:
~~~cue
cache: {
  dir: "$HOME/.cache/nanoforge"
}
~~~`,
	}

	relativePathFailedIssue = &Issue{
		id: RelativePathFailedId,
		mdMsg: `
# Could not compute a relative path!

A manifest and the artifact cache do not share a common root, so the
dependency path cannot be expressed relatively.

## Things you can try:
- Keep the cache and your workspace on the same volume.
- Run the command from the workspace root.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

We couldn't load your nanoforge configuration file.

## Config file locations:
- Linux: ~/.config/nanoforge/nanoforge.cue
- macOS: ~/Library/Application Support/nanoforge/nanoforge.cue
- Windows: %APPDATA%\nanoforge\nanoforge.cue

## Things you can try:
- Check the file path in use:
~~~
$ nanoforge config path
~~~

- Check the CUE syntax of the file:
~~~
$ cue vet nanoforge.cue
~~~`,
		extLinks: []HttpLink{
			"https://cuelang.org/docs/",
		},
	}

	templateCloneFailedIssue = &Issue{
		id: TemplateCloneFailedId,
		mdMsg: `
# Failed to create a new nanoservice!

The service template could not be cloned.

## Things you can try:
- Check your network connection.
- Point at another template:
~~~cue
scaffold: {
  template_url: "https://github.com/you/your-template.git"
}
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Two or more manifests declare each other as nanoservices. The fixpoint loop
still terminates, but the rendered graph contains a cycle.

## Things you can try:
- Inspect the graph:
~~~
$ nanoforge graph --format dot
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A manifest or cache file could not be written.

## Things you can try:
- Check the ownership of the workspace and the cache directory.
- Re-run the container engine as a user allowed to talk to it.`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		manifestParseErrorIssue.Id():      manifestParseErrorIssue,
		invalidArtifactIdIssue.Id():       invalidArtifactIdIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		artifactFetchFailedIssue.Id():     artifactFetchFailedIssue,
		unsafeLayerEntryIssue.Id():        unsafeLayerEntryIssue,
		cacheProvisionFailedIssue.Id():    cacheProvisionFailedIssue,
		relativePathFailedIssue.Id():      relativePathFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		templateCloneFailedIssue.Id():     templateCloneFailedIssue,
		dependencyCycleIssue.Id():         dependencyCycleIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].id < out[b].id })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
