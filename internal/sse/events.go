// Package sse streams live tag views to out-of-process clients as
// Server-Sent Events.
package sse

import (
	"time"

	"github.com/inkwell/tagstore/internal/livequery"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"
	// EventSnapshot carries the latest result of the streamed view.
	EventSnapshot EventType = "snapshot"
	// EventHeartbeat keeps idle connections alive.
	EventHeartbeat EventType = "heartbeat"
	// EventClosed is sent when the server ends the stream.
	EventClosed EventType = "closed"
)

// Event is one SSE message.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectedEventData identifies the stream to the client.
type ConnectedEventData struct {
	ClientID  string `json:"client_id"`
	Workspace string `json:"workspace"`
	View      string `json:"view"`
}

// SnapshotEventData is a live query snapshot with its error flattened to text.
type SnapshotEventData struct {
	View  string          `json:"view"`
	State livequery.State `json:"state"`
	Seq   uint64          `json:"seq"`
	Value any             `json:"value"`
	Error string          `json:"error,omitempty"`
}

// ClosedEventData says why the server ended the stream.
type ClosedEventData struct {
	Reason string `json:"reason"`
}

// NewConnectedEvent creates the opening event of a stream.
func NewConnectedEvent(clientID, workspace, view string) Event {
	return Event{
		Type:      EventConnected,
		Data:      ConnectedEventData{ClientID: clientID, Workspace: workspace, View: view},
		Timestamp: time.Now(),
	}
}

// NewSnapshotEvent wraps a live query snapshot.
func NewSnapshotEvent(view string, snap livequery.Snapshot[any]) Event {
	data := SnapshotEventData{
		View:  view,
		State: snap.State,
		Seq:   snap.Seq,
		Value: snap.Value,
	}
	if snap.Err != nil {
		data.Error = snap.Err.Error()
	}
	return Event{Type: EventSnapshot, Data: data, Timestamp: time.Now()}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}

// NewClosedEvent creates the final event of a server-ended stream.
func NewClosedEvent(reason string) Event {
	return Event{Type: EventClosed, Data: ClosedEventData{Reason: reason}, Timestamp: time.Now()}
}
