// Command tankctl inspects and edits stored multi-fluid tanks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().command().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "tankctl:", err)
		stop()
		os.Exit(1)
	}
}
