package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/http/response"
	"github.com/inkwell/tagstore/internal/livequery"
	"github.com/inkwell/tagstore/internal/service"
)

// DefaultHeartbeatInterval is how often idle streams get a heartbeat.
const DefaultHeartbeatInterval = 30 * time.Second

// ViewSource opens workspace-scoped live views.
type ViewSource interface {
	WatchWorkspace(ctx context.Context, view service.WorkspaceView, workspace, arg string) (*livequery.Subscription[any], error)
}

// Handler serves GET /api/v1/workspaces/{workspace}/live/{view}. The
// search view reads its query from ?q=.
type Handler struct {
	manager   *Manager
	views     ViewSource
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, views ViewSource, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		views:     views,
		logger:    logger,
		heartbeat: DefaultHeartbeatInterval,
	}
}

// SetHeartbeatInterval changes the heartbeat period for new streams.
func (h *Handler) SetHeartbeatInterval(d time.Duration) {
	h.heartbeat = d
}

// ServeHTTP streams snapshots of one live view until the client goes away
// or the manager shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	workspace := chi.URLParam(r, "workspace")
	view := chi.URLParam(r, "view")
	if workspace == "" {
		response.BadRequest(w, "workspace is required", h.logger)
		return
	}

	sub, err := h.views.WatchWorkspace(ctx, service.WorkspaceView(view), workspace, r.URL.Query().Get("q"))
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	defer sub.Close()

	client, err := h.manager.Connect(workspace, view)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, errors.CodeUnavailable, "server is shutting down", h.logger)
		return
	}
	defer h.manager.Disconnect(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", "error", err)
		return
	}

	clientLogger := h.logger.With("client_id", client.ID)

	if err := h.sendEvent(w, rc, NewConnectedEvent(client.ID, workspace, view)); err != nil {
		clientLogger.Warn("failed to send connected event", "error", err)
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				_ = h.sendEvent(w, rc, NewClosedEvent("view ended"))
				return
			}
			if err := h.sendEvent(w, rc, NewSnapshotEvent(view, snap)); err != nil {
				// Client disconnect is normal, not an error condition.
				clientLogger.Info("client disconnected during send")
				return
			}

		case <-heartbeat.C:
			if err := h.sendEvent(w, rc, NewHeartbeatEvent()); err != nil {
				clientLogger.Info("client disconnected during heartbeat")
				return
			}

		case <-client.Done:
			_ = h.sendEvent(w, rc, NewClosedEvent("server shutting down"))
			return

		case <-ctx.Done():
			return
		}
	}
}

// sendEvent writes one event in SSE wire format and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset after each successful write so hung connections are dropped.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * h.heartbeat)); err != nil {
		h.logger.Debug("failed to set write deadline", "error", err)
	}
	return nil
}
