// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// contextWithSignals returns a context cancelled on SIGINT or SIGTERM.
//
// Transfers which are under way complete, and the shed is left consistent.
func contextWithSignals(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signalChan)
		select {
		case sig := <-signalChan:
			logger.Warn("interrupted, waiting for ongoing transfers", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
