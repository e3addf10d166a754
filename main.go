// SPDX-License-Identifier: MPL-2.0

package main

import cmd "packmule/cmd/packmule"

func main() {
	cmd.Execute()
}
