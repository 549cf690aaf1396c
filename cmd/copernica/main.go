// Command copernica runs a narrow-waist ICN packet/routing substrate node.
package main

import "github.com/paradigmlink/copernica/cmd/copernica/commands"

func main() {
	commands.Execute()
}
