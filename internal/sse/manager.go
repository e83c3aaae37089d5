package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell/tagstore/internal/id"
)

// ErrShuttingDown is returned by Connect once Shutdown has started.
var ErrShuttingDown = errors.New("sse: manager shutting down")

// Client represents a connected SSE client.
type Client struct {
	ID          string
	Workspace   string
	View        string
	ConnectedAt time.Time
	// Done is closed when the manager ends the client's stream.
	Done chan struct{}

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Manager tracks open streams so they can be counted and closed on shutdown.
type Manager struct {
	clients map[string]*Client
	logger  *slog.Logger
	mu      sync.RWMutex

	shutdown bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Connect registers a client streaming view of workspace.
func (m *Manager) Connect(workspace, view string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, ErrShuttingDown
	}

	client := &Client{
		ID:          clientID,
		Workspace:   workspace,
		View:        view,
		ConnectedAt: time.Now(),
		Done:        make(chan struct{}),
	}
	m.clients[clientID] = client

	m.logger.Info("SSE client connected",
		"client_id", clientID,
		"workspace", workspace,
		"view", view,
		"total_clients", len(m.clients),
	)
	return client, nil
}

// Disconnect removes a client and closes its Done channel.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	remaining := len(m.clients)
	m.mu.Unlock()

	if !ok {
		return
	}
	client.close()
	m.logger.Info("SSE client disconnected",
		"client_id", clientID,
		"duration", time.Since(client.ConnectedAt),
		"total_clients", remaining,
	)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Shutdown refuses new clients and ends every open stream. It waits, up to
// ctx, for handlers to disconnect.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	m.logger.Info("SSE manager shutdown initiated", "clients", len(clients))
	for _, c := range clients {
		c.close()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.ClientCount() > 0 {
		select {
		case <-ctx.Done():
			m.logger.Warn("SSE shutdown timed out", "remaining", m.ClientCount())
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
