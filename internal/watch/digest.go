// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// digestFile returns the hex BLAKE3 sum of path, or "" when it cannot be read.
func digestFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
