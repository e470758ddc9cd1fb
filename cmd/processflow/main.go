// Command processflow manages the ProcessFlow store and serves its IPC
// channels.
package main

import "github.com/mesh-intelligence/processflow/internal/cli"

func main() {
	cli.Execute()
}
