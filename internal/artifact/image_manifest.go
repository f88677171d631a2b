// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const imageManifestName = "manifest.json"

// readLayers returns the ordered layer blob paths listed in a docker-save
// manifest.json. A manifest without a layer list yields no layers.
func readLayers(unpacked string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(unpacked, imageManifestName))
	if err != nil {
		return nil, err
	}
	return parseLayers(data)
}

func parseLayers(data []byte) ([]string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", imageManifestName, err)
	}

	entries, ok := doc.([]any)
	if !ok || len(entries) == 0 {
		return nil, nil
	}
	first, ok := entries[0].(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, ok := first["Layers"].([]any)
	if !ok {
		return nil, nil
	}

	layers := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: layer %d is %T, want string", imageManifestName, i, v)
		}
		layers = append(layers, s)
	}
	return layers, nil
}
