package commands

import (
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
)

const banner = `
  ____             _                _
 |  _ \  ___ _ __ (_)_ __   ___  __| |
 | | | |/ _ \ '_ \| | '_ \ / _ \/ _' |
 | |_| |  __/ |_) | | | | |  __/ (_| |
 |____/ \___| .__/|_|_| |_|\___|\__,_|
            |_|      widget heartbeat bot
`

func printBanner() {
	writeBanner(colorable.NewColorableStdout())
}

func writeBanner(w io.Writer) {
	fmt.Fprintf(w, "\033[36m%s\033[0m\n", banner)
}
