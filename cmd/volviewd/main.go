// Command volviewd serves VolView viewer configuration for XNAT projects.
package main

import "github.com/volview-xnat/volviewd/cmd/volviewd/cmd"

func main() {
	cmd.Execute()
}
