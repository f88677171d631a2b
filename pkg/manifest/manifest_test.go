// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const serviceManifest = `
[package]
name = "gateway"
version = "0.1.0"
edition = "2021"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
tokio = "1"

[nanoservices.auth]
dev_image = "nanoservices/auth:latest"
prod_image = "nanoservices/auth:1.2.0"
entrypoint = "."
features = ["server"]
package = "auth-core"

[nanoservices.auth.kernel]
name = "auth-kernel"
entrypoint = "kernel"
features = ["sqlx"]

[nanoservices.billing]
dev_image = "nanoservices/billing"
prod_image = "nanoservices/billing"
entrypoint = "crate"
local = true

[profile.release]
lto = true
`

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse("Cargo.toml", []byte(serviceManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !m.Buildable() {
		t.Error("Buildable() = false, want true")
	}
	wantPkg := &Package{Name: "gateway", Version: "0.1.0", Edition: "2021"}
	if diff := cmp.Diff(wantPkg, m.Package); diff != "" {
		t.Errorf("Package mismatch (-want +got):\n%s", diff)
	}

	want := []NamedDeclaration{
		{
			Name: "auth",
			Declaration: Declaration{
				DevImage:   "nanoservices/auth:latest",
				ProdImage:  "nanoservices/auth:1.2.0",
				Entrypoint: ".",
				Features:   []string{"server"},
				Package:    "auth-core",
				Kernel: &Kernel{
					Name:       "auth-kernel",
					Entrypoint: "kernel",
					Features:   []string{"sqlx"},
				},
			},
		},
		{
			Name: "billing",
			Declaration: Declaration{
				DevImage:   "nanoservices/billing",
				ProdImage:  "nanoservices/billing",
				Entrypoint: "crate",
				Local:      true,
			},
		},
	}
	if diff := cmp.Diff(want, m.Declarations()); diff != "" {
		t.Errorf("Declarations() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NotBuildable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"workspace root", "[workspace]\nmembers = [\"a\", \"b\"]\n"},
		{"no dependencies", "[package]\nname = \"x\"\nversion = \"0.1.0\"\n"},
		{"no package", "[dependencies]\nserde = \"1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Parse("Cargo.toml", []byte(tt.content))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if m.Buildable() {
				t.Error("Buildable() = true, want false")
			}
			if len(m.Declarations()) != 0 {
				t.Errorf("Declarations() = %v, want none", m.Declarations())
			}
		})
	}
}

func TestParse_WorkspaceInheritedVersion(t *testing.T) {
	t.Parallel()

	m, err := Parse("Cargo.toml", []byte("[package]\nname = \"x\"\nversion.workspace = true\n\n[dependencies]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Package == nil || m.Package.Name != "x" || m.Package.Version != "" {
		t.Errorf("Package = %+v, want name only", m.Package)
	}
	if !m.Buildable() {
		t.Error("Buildable() = false, want true")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		declaration bool
	}{
		{"malformed toml", "[package\nname = 1", false},
		{"features not an array", "[nanoservices.a]\ndev_image = \"a/b\"\nprod_image = \"a/b\"\nentrypoint = \".\"\nfeatures = \"x\"\n", false},
		{"missing dev_image", "[nanoservices.a]\nprod_image = \"a/b\"\nentrypoint = \".\"\n", true},
		{"missing entrypoint", "[nanoservices.a]\ndev_image = \"a/b\"\nprod_image = \"a/b\"\n", true},
		{"uppercase image", "[nanoservices.a]\ndev_image = \"A/B\"\nprod_image = \"a/b\"\nentrypoint = \".\"\n", true},
		{"kernel without name", "[nanoservices.a]\ndev_image = \"a/b\"\nprod_image = \"a/b\"\nentrypoint = \".\"\n[nanoservices.a.kernel]\nentrypoint = \"k\"\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse("svc/Cargo.toml", []byte(tt.content))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("errors.Is(err, ErrParse) = false for %v", err)
			}
			if got := errors.Is(err, ErrInvalidDeclaration); got != tt.declaration {
				t.Errorf("errors.Is(err, ErrInvalidDeclaration) = %v, want %v", got, tt.declaration)
			}
		})
	}
}

func TestManifest_EncodeRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := Parse("Cargo.toml", []byte(serviceManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	first, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	again, err := Parse("Cargo.toml", first)
	if err != nil {
		t.Fatalf("Parse(encoded) error = %v\n%s", err, first)
	}
	second, err := again.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("encoding is not stable:\n--- first\n%s\n--- second\n%s", first, second)
	}

	if diff := cmp.Diff(m.Document(), again.Document()); diff != "" {
		t.Errorf("document lost content (-want +got):\n%s", diff)
	}
}

func TestManifest_EncodeNormalizesLayout(t *testing.T) {
	t.Parallel()

	m, err := Parse("Cargo.toml", []byte(`# workspace gateway
[package]
name = "gateway" # inline note
version = "0.1.0"

[[bin]]
name = "gw"

[dependencies]
tokio = "1"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := string(data)

	if strings.Contains(out, "#") {
		t.Errorf("Encode() kept comments:\n%s", out)
	}
	deps, pkg := strings.Index(out, "[dependencies]"), strings.Index(out, "[package]")
	if deps < 0 || pkg < 0 || deps > pkg {
		t.Errorf("Encode() did not sort tables:\n%s", out)
	}
	if !strings.Contains(out, "[[bin]]") {
		t.Errorf("Encode() dropped the bin array:\n%s", out)
	}
}

func TestManifest_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Cargo.toml")
	if err := os.WriteFile(path, []byte(serviceManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	m.Dependencies["extra"] = map[string]any{"path": "../extra"}
	if err := m.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	reread, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	entry, ok := reread.Dependencies["extra"].(map[string]any)
	if !ok || entry["path"] != "../extra" {
		t.Errorf("Dependencies[extra] = %v, want path ../extra", reread.Dependencies["extra"])
	}
	if _, ok := reread.Document()["profile"]; !ok {
		t.Error("unknown [profile] section was dropped")
	}
}

func TestRead_Missing(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "Cargo.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read() error = %v, want os.ErrNotExist", err)
	}
}

func TestDeclaration_Key(t *testing.T) {
	t.Parallel()

	base := Declaration{DevImage: "a/b:1", ProdImage: "a/b:1", Entrypoint: "."}

	withFeature := base
	withFeature.Features = []string{"x"}
	local := base
	local.Local = true
	withKernel := base
	withKernel.Kernel = &Kernel{Name: "k", Entrypoint: "k"}

	if base.Key() != (Declaration{DevImage: "a/b:1", ProdImage: "a/b:1", Entrypoint: "."}).Key() {
		t.Error("equal declarations must share a key")
	}
	for name, other := range map[string]Declaration{
		"features": withFeature,
		"local":    local,
		"kernel":   withKernel,
	} {
		if base.Key() == other.Key() {
			t.Errorf("declarations differing in %s share a key", name)
		}
	}
}

func TestArtifactID_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    ArtifactID
		valid bool
	}{
		{"nanoservices/auth:latest", true},
		{"x/y", true},
		{"localhost:5000/team/svc_a:v1.2", true},
		{"registry.example.com/a/b@sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"", false},
		{"Upper/Case", false},
		{"a//b", false},
		{"a/b:", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			t.Parallel()

			ok, errs := tt.id.IsValid()
			if ok != tt.valid {
				t.Fatalf("IsValid() = %v, want %v (errs: %v)", ok, tt.valid, errs)
			}
			if !ok && !errors.Is(errs[0], ErrInvalidArtifactID) {
				t.Errorf("error %v does not wrap ErrInvalidArtifactID", errs[0])
			}
		})
	}
}
