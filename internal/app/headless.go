package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// RunHeadless fires Setup immediately and CloseRequested on SIGINT, SIGTERM
// or when ctx ends.
func RunHeadless(ctx context.Context, r *Runtime) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.Setup(ctx)
	r.logger.Info("running headless, press ctrl+c to stop")

	<-ctx.Done()
	r.CloseRequested()
	return nil
}
