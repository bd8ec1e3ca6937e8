// Command ggufchat loads local GGUF models and chats with them, either from
// the terminal or through a loopback HTTP bridge for a web front end.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
