package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/livedot/internal/cli"
	"github.com/matzehuels/livedot/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		code := errors.GetCode(err)
		if code == "" {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %s (%s)\n", errors.UserMessage(err), code)
		}
		os.Exit(1)
	}
}
