// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"testing"
)

// ImageArchive returns an uncompressed docker-save archive. Each element of
// layers becomes one layer tar, applied in order; keys are slash-separated
// file paths.
func ImageArchive(t testing.TB, layers ...map[string]string) []byte {
	t.Helper()

	blobs := make(map[string]string, len(layers))
	paths := make([]string, 0, len(layers))
	for i, files := range layers {
		p := fmt.Sprintf("blobs/sha256/layer%02d", i)
		blobs[p] = string(tarOf(t, files))
		paths = append(paths, p)
	}

	manifestJSON, err := json.Marshal([]map[string]any{{
		"Config":   "blobs/sha256/config",
		"RepoTags": []string{"test/image:latest"},
		"Layers":   paths,
	}})
	if err != nil {
		t.Fatalf("failed to encode manifest.json: %v", err)
	}
	blobs["manifest.json"] = string(manifestJSON)
	blobs["blobs/sha256/config"] = "{}"
	return tarOf(t, blobs)
}

func tarOf(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := slices.Sorted(maps.Keys(files))

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		body := files[name]
		hdr := &tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("failed to write tar body %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	return buf.Bytes()
}
