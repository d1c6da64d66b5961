package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"seqx/internal/logging"
)

func main() {
	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L().Error("seqx", "err", err)
		os.Exit(1)
	}
}
