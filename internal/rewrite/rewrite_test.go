// SPDX-License-Identifier: MPL-2.0

package rewrite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nanoservicesforge/nanoforge/internal/relpath"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

const sentinel = ".nanoservices_cache/domain_services/nanoservices"

var (
	root      = filepath.FromSlash("/work")
	artifacts = filepath.FromSlash("/work/.nanoservices_cache/domain_services/nanoservices")
	opts      = Options{WorkingRoot: root, ArtifactsRoot: artifacts, Sentinel: sentinel}
)

const serviceManifest = `
[package]
name = "gateway"
version = "0.1.0"

[dependencies]
serde = { version = "1", features = ["derive"] }
local-lib = { path = "../libs/local-lib" }
old-auth = { path = "../.nanoservices_cache/domain_services/nanoservices/old_auth/." }
tokio = "1"

[nanoservices.auth]
dev_image = "nanoservices/auth:latest"
prod_image = "nanoservices/auth:1.0.0"
entrypoint = "."
features = ["server"]
package = "auth-core"

[nanoservices.auth.kernel]
name = "auth-kernel"
entrypoint = "kernel"
features = ["sqlx"]
`

func parse(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(filepath.Join(root, "gateway", "Cargo.toml"), []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return m
}

func TestApply(t *testing.T) {
	t.Parallel()

	m := parse(t, serviceManifest)
	got, err := Apply(m, m.Declarations(), opts)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := map[string]any{
		"serde":     map[string]any{"version": "1", "features": []any{"derive"}},
		"local-lib": map[string]any{"path": "../libs/local-lib"},
		"tokio":     "1",
		"auth": map[string]any{
			"path":     "../.nanoservices_cache/domain_services/nanoservices/nanoservices_auth_.latest/.",
			"features": []any{"server"},
			"package":  "auth-core",
		},
		"auth-kernel": map[string]any{
			"path":     "../.nanoservices_cache/domain_services/nanoservices/nanoservices_auth_.latest/kernel",
			"features": []any{"sqlx"},
		},
	}
	if diff := cmp.Diff(want, got.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	m := parse(t, serviceManifest)
	if _, err := Apply(m, m.Declarations(), opts); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	first, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	again := parse(t, string(first))
	if _, err := Apply(again, again.Declarations(), opts); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	second, err := again.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("rewrite is not idempotent:\n--- first\n%s\n--- second\n%s", first, second)
	}
}

func TestStrip_StaleEntryRemoval(t *testing.T) {
	t.Parallel()

	m := parse(t, `
[package]
name = "gateway"
version = "0.1.0"

[dependencies]
tokio = "1"
local-lib = { path = "../libs/local-lib" }
auth = { path = "../.nanoservices_cache/domain_services/nanoservices/nanoservices_auth/." }
`)

	got, err := Apply(m, m.Declarations(), opts)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := map[string]any{
		"tokio":     "1",
		"local-lib": map[string]any{"path": "../libs/local-lib"},
	}
	if diff := cmp.Diff(want, got.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestStrip_ReturnsRemovedNames(t *testing.T) {
	t.Parallel()

	m := parse(t, serviceManifest)
	if diff := cmp.Diff([]string{"old-auth"}, Strip(m, sentinel)); diff != "" {
		t.Errorf("Strip() mismatch (-want +got):\n%s", diff)
	}
	if removed := Strip(m, sentinel); len(removed) != 0 {
		t.Errorf("second Strip() = %v, want nothing", removed)
	}
	if removed := Strip(m, ""); removed != nil {
		t.Errorf("Strip() with empty sentinel = %v, want nil", removed)
	}
}

func TestStrip_MatchesWholeSegments(t *testing.T) {
	t.Parallel()

	m := parse(t, `
[package]
name = "gateway"
version = "0.1.0"

[dependencies]
helper = { path = "../buildtools/helper" }
near = { path = "../build/domain_services/nanoservices_extra/x" }
vendored = { path = "vendor/build/domain_services" }
auth = { path = "../build/domain_services/nanoservices/nanoservices_auth_.latest/." }
win = { path = '..\build\domain_services\nanoservices\nanoservices_users_.latest' }
`)

	got := Strip(m, "build/domain_services/nanoservices")
	if diff := cmp.Diff([]string{"auth", "win"}, got); diff != "" {
		t.Errorf("Strip() mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"helper", "near", "vendored"} {
		if _, ok := m.Dependencies[name]; !ok {
			t.Errorf("hand-written dependency %q was removed", name)
		}
	}
}

func TestApply_NoRelativePath(t *testing.T) {
	t.Parallel()

	m := parse(t, serviceManifest)
	m.Path = filepath.FromSlash("relative/Cargo.toml")

	_, err := Apply(m, m.Declarations(), Options{ArtifactsRoot: artifacts, Sentinel: sentinel})
	if !errors.Is(err, relpath.ErrNoRelativePath) {
		t.Fatalf("Apply() error = %v, want relpath.ErrNoRelativePath", err)
	}
}
