// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/extforge/extforge/cmd/extforge"

func main() {
	cmd.Execute()
}
