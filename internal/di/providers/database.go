package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/livequery"
	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/sse"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/store/backend"
)

// HubHandle wraps the live query hub with shutdown capability.
type HubHandle struct {
	*livequery.Hub
}

// Shutdown implements do.Shutdownable.
func (h *HubHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Hub.Shutdown(ctx)
}

// ProvideHub provides the live query hub that store writes are published to.
func ProvideHub(i do.Injector) (*HubHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var opts []livequery.Option
	if cfg.Live.RefreshRate > 0 {
		opts = append(opts, livequery.WithRefreshLimit(cfg.Live.RefreshRate, cfg.Live.RefreshBurst))
	}
	hub := livequery.NewHub(log.Component("livequery"), opts...)

	log.Info("Live query hub started", "refresh_rate", cfg.Live.RefreshRate)
	return &HubHandle{Hub: hub}, nil
}

// SSEManagerHandle wraps the SSE manager for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &SSEManagerHandle{Manager: sse.NewManager(log.Component("sse"))}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured storage backend, publishing its change
// events to the live query hub.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	hub := do.MustInvoke[*HubHandle](i)

	st, path, err := backend.Open(cfg.Storage, log.Component("store"), hub.Hub)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Storage.Backend, "path", path)
	return &StoreHandle{Store: st}, nil
}
