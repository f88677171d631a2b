// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

func TestNewLayout(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/space")

	l := NewLayout(root, "")
	if want := filepath.Join(root, DefaultDirName); l.Root != want {
		t.Errorf("Root = %q, want %q", l.Root, want)
	}
	if want := filepath.Join(root, DefaultDirName, "domain_services", "nanoservices"); l.ArtifactsDir != want {
		t.Errorf("ArtifactsDir = %q, want %q", l.ArtifactsDir, want)
	}
	if want := filepath.Join(root, DefaultDirName, "domain_services_tar", "nanoservices_tar"); l.StagingDir != want {
		t.Errorf("StagingDir = %q, want %q", l.StagingDir, want)
	}
	if want := DefaultDirName + "/domain_services/nanoservices"; l.Sentinel() != want {
		t.Errorf("Sentinel() = %q, want %q", l.Sentinel(), want)
	}

	abs := filepath.FromSlash("/var/cache/nf")
	if got := NewLayout(root, abs).Root; got != abs {
		t.Errorf("absolute dir: Root = %q, want %q", got, abs)
	}
}

func TestLayout_ArtifactPaths(t *testing.T) {
	t.Parallel()

	l := NewLayout(filepath.FromSlash("/w"), ".cache")
	id := manifest.ArtifactID("nanoservices/auth:latest")

	if got, want := l.ArtifactDir(id), filepath.Join(l.ArtifactsDir, "nanoservices_auth_.latest"); got != want {
		t.Errorf("ArtifactDir() = %q, want %q", got, want)
	}
	if got, want := l.ArchivePath(id), filepath.Join(l.StagingDir, "nanoservices_auth_.latest.tar"); got != want {
		t.Errorf("ArchivePath() = %q, want %q", got, want)
	}
	if got, want := l.UnpackedDir(id), filepath.Join(l.StagingDir, "nanoservices_auth_.latest"); got != want {
		t.Errorf("UnpackedDir() = %q, want %q", got, want)
	}
	if got, want := l.DigestPath(id), filepath.Join(l.StagingDir, "nanoservices_auth_.latest.blake3"); got != want {
		t.Errorf("DigestPath() = %q, want %q", got, want)
	}

	back, ok := l.ArtifactFor(filepath.Join(l.ArtifactDir(id), "kernel", "Cargo.toml"))
	if !ok || back != id {
		t.Errorf("ArtifactFor() = %q, %v, want %q", back, ok, id)
	}
	if _, ok := l.ArtifactFor(filepath.FromSlash("/w/src/Cargo.toml")); ok {
		t.Error("ArtifactFor() matched a path outside the cache")
	}
}

func TestLayout_CheckWorkspace(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/w")
	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{name: "default", dir: "", wantErr: false},
		{name: "nested", dir: "build/cache", wantErr: false},
		{name: "absolute inside", dir: filepath.FromSlash("/w/.cache"), wantErr: false},
		{name: "workspace root", dir: ".", wantErr: true},
		{name: "parent", dir: "..", wantErr: true},
		{name: "sibling", dir: filepath.FromSlash("../shared"), wantErr: true},
		{name: "absolute outside", dir: filepath.FromSlash("/tmp/nfcache"), wantErr: true},
		{name: "prefix only", dir: filepath.FromSlash("/w2/cache"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewLayout(root, tt.dir).CheckWorkspace(root)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckWorkspace() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrOutsideWorkspace) {
				t.Errorf("error = %v, want ErrOutsideWorkspace", err)
			}
			if got := issue.IssueOf(err); got != issue.ConfigLoadFailedId {
				t.Errorf("IssueOf() = %v, want ConfigLoadFailedId", got)
			}
		})
	}
}

func TestLayout_Provision(t *testing.T) {
	t.Parallel()

	l := NewLayout(t.TempDir(), "")

	if err := l.Provision(false); err != nil {
		t.Fatalf("Provision(false) error = %v", err)
	}
	for _, dir := range []string{l.ArtifactsDir, l.StagingDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("%s not provisioned: %v", dir, err)
		}
	}

	marker := filepath.Join(l.ArtifactsDir, "x_y", "file")
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Provision(false); err != nil {
		t.Fatalf("second Provision(false) error = %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Provision(false) removed existing content: %v", err)
	}

	if err := l.Provision(true); err != nil {
		t.Fatalf("Provision(true) error = %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Errorf("Provision(true) kept existing content: %v", err)
	}
	if _, err := os.Stat(l.StagingDir); err != nil {
		t.Errorf("Provision(true) did not recreate staging: %v", err)
	}
}
