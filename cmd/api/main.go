// Package main provides the entry point for the tagstore server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/inkwell/tagstore/internal/di"
	"github.com/inkwell/tagstore/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container shuts down dependents first: HTTP server, services,
	// then the store and the hub.
	if report := injector.Shutdown(); report != nil && !report.Succeed {
		log.WithError(report).Error("Shutdown error")
	}

	log.Info("Server stopped")
}
