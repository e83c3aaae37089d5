// Package badgerstore implements store.Store on an embedded Badger database.
package badgerstore

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/store"
)

// Entity key prefixes.
const (
	tagPrefix      = "tag:"
	nodeTagPrefix  = "ntag:"
	relationPrefix = "rel:"
)

// Index names.
const (
	idxWorkspace = "workspace"
	idxCategory  = "category"
	idxName      = "name"
	idxNode      = "node"
	idxTag       = "tag"
	idxPair      = "pair"
	idxSource    = "source"
	idxTarget    = "target"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Receives a ChangeEvent after every committed write.
	eventEmitter store.EventEmitter

	tags      *Entity[domain.Tag]
	nodeTags  *Entity[domain.NodeTag]
	relations *Entity[domain.TagRelation]
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	return open(opts, logger, emitter)
}

// NewInMemory opens a database that lives only as long as the process.
func NewInMemory(logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger, emitter)
}

func open(opts badger.Options, logger *slog.Logger, emitter store.EventEmitter) (*Store, error) {
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		db:           db,
		logger:       logger,
		eventEmitter: emitter,
	}
	s.initTags()
	s.initNodeTags()
	s.initRelations()

	logger.Info("Badger database opened successfully", "path", opts.Dir, "in_memory", opts.InMemory)
	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

func (s *Store) initTags() {
	s.tags = NewEntity[domain.Tag](s.db, tagPrefix).
		WithIndex(idxWorkspace, func(t *domain.Tag) []string {
			return []string{t.Workspace}
		}).
		WithIndex(idxCategory, func(t *domain.Tag) []string {
			return []string{compound(t.Workspace, string(t.Category))}
		}).
		WithIndex(idxName, func(t *domain.Tag) []string {
			return []string{compound(t.Workspace, domain.FoldName(t.Name))}
		})
}

func (s *Store) initNodeTags() {
	s.nodeTags = NewEntity[domain.NodeTag](s.db, nodeTagPrefix).
		WithIndex(idxNode, func(nt *domain.NodeTag) []string {
			return []string{nt.NodeID}
		}).
		WithIndex(idxTag, func(nt *domain.NodeTag) []string {
			return []string{nt.TagID}
		}).
		WithUniqueIndex(idxPair, func(nt *domain.NodeTag) []string {
			return []string{compound(nt.NodeID, nt.TagID)}
		})
}

func (s *Store) initRelations() {
	s.relations = NewEntity[domain.TagRelation](s.db, relationPrefix).
		WithIndex(idxWorkspace, func(r *domain.TagRelation) []string {
			return []string{r.Workspace}
		}).
		WithIndex(idxSource, func(r *domain.TagRelation) []string {
			return []string{r.SourceTagID}
		}).
		WithIndex(idxTarget, func(r *domain.TagRelation) []string {
			return []string{r.TargetTagID}
		}).
		WithUniqueIndex(idxPair, func(r *domain.TagRelation) []string {
			return []string{compound(r.SourceTagID, r.TargetTagID)}
		})
}

// emit broadcasts a committed change.
func (s *Store) emit(op store.Op, ids []string, tables ...store.Table) {
	s.eventEmitter.Emit(store.Changed(op, ids, tables...))
}
