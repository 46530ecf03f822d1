// # cmd/nekoscript/main.go
package main

import (
	"os"

	"nekoscript/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
