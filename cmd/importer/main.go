// Command importer loads a family-tree JSON export into the lineage store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agenthands/lineage/internal/logger"
	"github.com/agenthands/lineage/internal/logger/console"
)

func main() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Prefix: "import"}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
