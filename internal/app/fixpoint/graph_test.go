// SPDX-License-Identifier: MPL-2.0

package fixpoint

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nanoservicesforge/nanoforge/internal/dag"
)

func TestGraph(t *testing.T) {
	t.Parallel()

	o, _ := newOrchestrator(t, map[string]string{"Cargo.toml": gatewayManifest}, nestedArtifacts())
	if _, err := o.Run(context.Background(), ModeInstall); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	g, err := o.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() error = %v", err)
	}
	want := []string{
		"nanoservice:nanoservices/users:latest",
		"users",
		"nanoservice:nanoservices/auth:latest",
		"auth",
		"Cargo.toml",
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("build order mismatch (-want +got):\n%s", diff)
	}

	kinds := map[string]dag.Kind{}
	for _, n := range g.Nodes() {
		kinds[n.ID] = n.Kind
	}
	wantKinds := map[string]dag.Kind{
		"nanoservice:nanoservices/users:latest": dag.KindNanoservice,
		"users":                                 dag.KindDeclaration,
		"nanoservice:nanoservices/auth:latest":  dag.KindNanoservice,
		"auth":                                  dag.KindDeclaration,
		"Cargo.toml":                            dag.KindManifest,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("node kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_NestedManifestInsideArtifact(t *testing.T) {
	t.Parallel()

	o, _ := newOrchestrator(t, nil, nil)
	label, kind := o.manifestLabel(".nanoservices_cache/domain_services/nanoservices/nanoservices_auth_.latest/kernel/Cargo.toml")
	if label != "nanoservice:nanoservices/auth:latest/kernel" || kind != dag.KindNanoservice {
		t.Errorf("manifestLabel() = %q, %q", label, kind)
	}

	label, kind = o.manifestLabel("svc/Cargo.toml")
	if label != "svc/Cargo.toml" || kind != dag.KindManifest {
		t.Errorf("manifestLabel() = %q, %q", label, kind)
	}
}
