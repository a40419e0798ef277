package scheduler

import (
	"context"
	"os"
	"syscall"

	"github.com/MikeO7/LocalWake/pkg/log"
)

// handleSignals handles incoming OS signals until ctx is done. SIGUSR1
// toggles debug logging, SIGHUP reloads schedules and anything else shuts
// down.
func handleSignals(ctx context.Context, sigChan <-chan os.Signal, cancel context.CancelFunc, reload func()) {
	for {
		var sig os.Signal
		select {
		case <-ctx.Done():
			return
		case sig = <-sigChan:
		}
		switch sig {
		case syscall.SIGUSR1:
			log.ToggleDebug()
			continue
		case syscall.SIGHUP:
			log.Info("Received SIGHUP, reloading schedules")
			if reload != nil {
				reload()
			}
			continue
		}
		log.Infof("Received signal %v, shutting down gracefully...", sig)
		cancel()
		return
	}
}
