// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type (
	compression int

	// testEntry is one tar entry. A nil Body with empty Link is a directory.
	testEntry struct {
		Name    string
		Body    []byte
		Symlink string
	}

	testLayer struct {
		Entries     []testEntry
		Compression compression
	}
)

const (
	plain compression = iota
	gzipped
	zstded
)

func files(kv ...string) []testEntry {
	entries := make([]testEntry, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, testEntry{Name: kv[i], Body: []byte(kv[i+1])})
	}
	return entries
}

func buildTar(t *testing.T, entries []testEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		var hdr *tar.Header
		switch {
		case e.Symlink != "":
			hdr = &tar.Header{Name: e.Name, Typeflag: tar.TypeSymlink, Linkname: e.Symlink, Mode: 0o777}
		case e.Body == nil:
			hdr = &tar.Header{Name: e.Name, Typeflag: tar.TypeDir, Mode: 0o755}
		default:
			hdr = &tar.Header{Name: e.Name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(e.Body))}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write(e.Body); err != nil {
				t.Fatalf("write tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

func compress(t *testing.T, data []byte, c compression) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch c {
	case gzipped:
		w = gzip.NewWriter(&buf)
	case zstded:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w = zw
	default:
		return data
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress close: %v", err)
	}
	return buf.Bytes()
}

// buildImageArchive returns a docker-save archive whose manifest.json lists
// the layers in order.
func buildImageArchive(t *testing.T, layers ...testLayer) []byte {
	t.Helper()

	blobs := map[string][]byte{}
	var paths []string
	for i, l := range layers {
		p := "blobs/sha256/layer" + string(rune('a'+i))
		blobs[p] = compress(t, buildTar(t, l.Entries), l.Compression)
		paths = append(paths, p)
	}

	manifestJSON, err := json.Marshal([]map[string]any{{
		"Config":   "blobs/sha256/config",
		"RepoTags": []string{"test/image:latest"},
		"Layers":   paths,
	}})
	if err != nil {
		t.Fatal(err)
	}

	entries := []testEntry{
		{Name: "blobs/"},
		{Name: "blobs/sha256/"},
		{Name: "manifest.json", Body: manifestJSON},
		{Name: "blobs/sha256/config", Body: []byte("{}")},
	}
	names := make([]string, 0, len(blobs))
	for name := range blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, testEntry{Name: name, Body: blobs[name]})
	}
	return buildTar(t, entries)
}
