// Sourcify Sync - mirrors the Sourcify export manifest into a local
// directory, driving bulk transfer through aria2c with resume support.
package main

import (
	"os"

	"github.com/sourcifyeth/sourcify-sync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
