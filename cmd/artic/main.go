// Command artic browses the Art Institute of Chicago artworks collection.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/artic-browser/internal/cli"
	"github.com/Sternrassler/artic-browser/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args, config.Environ())
	stop()
	os.Exit(code)
}
