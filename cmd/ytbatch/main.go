// Command ytbatch is a thin CLI front end over internal/orchestrator: it
// wires config, a yt-dlp Downloader, and the history store together, but
// holds none of the batch's scheduling logic itself.
package main

import (
	"fmt"
	"os"

	"ytbatch/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
