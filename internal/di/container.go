// Package di provides dependency injection configuration for the tagstore server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/di/providers"
	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Live queries and storage
	do.Provide(injector, providers.ProvideHub)
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideTagWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.HubHandle](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.TagWatcher](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	return nil
}
