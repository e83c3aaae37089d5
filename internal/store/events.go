package store

import (
	"slices"
)

// Table names a logical table. Live queries subscribe by table.
type Table string

// Tables.
const (
	TableTags         Table = "tags"
	TableNodeTags     Table = "nodeTags"
	TableTagRelations Table = "tagRelations"
)

// AllTables lists every table a backend maintains.
var AllTables = []Table{TableTags, TableNodeTags, TableTagRelations}

// Op is the kind of write that produced a ChangeEvent.
type Op string

// Write operations.
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent describes one committed write. A multi-table transaction
// (cascade delete, node tag sync) produces a single event naming every
// table it touched.
type ChangeEvent struct {
	Tables []Table  `json:"tables"`
	Op     Op       `json:"op"`
	IDs    []string `json:"ids,omitempty"`
}

// Touches reports whether the event modified any of the given tables.
func (e ChangeEvent) Touches(tables []Table) bool {
	for _, t := range e.Tables {
		if slices.Contains(tables, t) {
			return true
		}
	}
	return false
}

// EventEmitter receives change notifications after a write commits.
// Store uses this to broadcast changes without depending on live query internals.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// Changed builds a ChangeEvent.
func Changed(op Op, ids []string, tables ...Table) ChangeEvent {
	return ChangeEvent{Tables: tables, Op: op, IDs: ids}
}
