// Command ecuharness verifies the output timing of an engine controller.
package main

import "github.com/viaems/ecuharness/ecuharness/cmd"

func main() {
	cmd.Execute()
}
