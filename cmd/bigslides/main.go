// bigslides turns markdown into big-text slide decks.
package main

import (
	"os"

	"github.com/hupe1980/bigslides/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
