// Command floppy reads, writes, and inspects floppy disk images through
// USB flux-level adapters (Greaseweazle, SuperCard Pro, KryoFlux).
package main

import "floppy/cmd"

func main() {
	cmd.Execute()
}
