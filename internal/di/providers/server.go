package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/inkwell/tagstore/internal/api"
	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/service"
	"github.com/inkwell/tagstore/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.api.Close()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	tagService := do.MustInvoke[*service.TagService](i)
	watcher := do.MustInvoke[*service.TagWatcher](i)

	services := &api.Services{
		Tag:     tagService,
		Watcher: watcher,
	}

	sseHandler := sse.NewHandler(sseHandle.Manager, watcher, log.Component("sse"))
	handler := api.NewServer(cfg, storeHandle.Store, services, sseHandler, sseHandle.Manager, log.Logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Streams never go idle on their own, so end them when shutdown begins.
	srv.RegisterOnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sseHandle.Manager.Shutdown(ctx); err != nil {
			log.Warn("SSE shutdown incomplete", "error", err)
		}
	})

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
