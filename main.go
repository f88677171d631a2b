// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/nanoservicesforge/nanoforge/cmd/nanoforge"

func main() {
	cmd.Execute()
}
