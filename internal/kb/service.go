// Package kb ties a published snapshot to the searchers and router that
// answer questions against it, and swaps snapshots without interrupting
// queries in flight.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kalambet/askdb/internal/ingest"
	"github.com/kalambet/askdb/internal/lexical"
	"github.com/kalambet/askdb/internal/retrieval"
	"github.com/kalambet/askdb/internal/router"
	"github.com/kalambet/askdb/internal/storage"
)

// ErrNotReady is returned when no snapshot has been loaded yet.
var ErrNotReady = errors.New("knowledge base not loaded")

// Answer is the wire form of a routed result.
type Answer struct {
	Source     string           `json:"source"`
	Data       []map[string]any `json:"data"`
	Confidence float64          `json:"confidence"`
}

// NewAnswer converts a router result.
func NewAnswer(res *router.Result) Answer {
	data := res.Rows
	if data == nil {
		data = []map[string]any{}
	}
	return Answer{Source: res.Tier.Source(), Data: data, Confidence: res.Confidence}
}

// Options wires a Service.
type Options struct {
	Catalog    *storage.Catalog
	Ingest     ingest.Options
	Embedder   retrieval.Embedder
	Translator router.Translator
	Limits     router.Limits
}

// Snapshot is one loaded, read-only version of the knowledge base.
type Snapshot struct {
	Version string
	Schema  string
	FAQSize int

	store  *storage.Store
	router *router.Router

	// mu is held shared by queries and exclusively by retire.
	mu      sync.RWMutex
	retired bool
}

// Service answers questions against the current snapshot.
type Service struct {
	opts     Options
	ingester *ingest.Engine
	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	logger   *slog.Logger
}

func NewService(opts Options) *Service {
	return &Service{
		opts:     opts,
		ingester: ingest.NewEngine(opts.Catalog),
		logger:   slog.Default().With("component", "kb"),
	}
}

// Load opens version read-only, builds its indexes and makes it current.
// The previous snapshot is closed once its in-flight queries finish.
func (s *Service) Load(ctx context.Context, version string) error {
	snap, err := s.open(ctx, version)
	if err != nil {
		return err
	}
	old := s.current.Swap(snap)
	s.logger.Info("snapshot loaded", "version", version, "faq_entries", snap.FAQSize)
	if old != nil {
		old.retire()
		s.logger.Debug("snapshot retired", "version", old.Version)
	}
	return nil
}

// LoadCurrent loads the published version.
func (s *Service) LoadCurrent(ctx context.Context) error {
	version, err := s.opts.Catalog.Current()
	if err != nil {
		return fmt.Errorf("reading current snapshot: %w", err)
	}
	return s.Load(ctx, version)
}

// Reload ingests the sources into a new snapshot and loads it. Concurrent
// calls run one after another.
func (s *Service) Reload(ctx context.Context) (ingest.Report, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	report, err := s.ingester.Run(ctx, s.opts.Ingest)
	if err != nil {
		return ingest.Report{}, err
	}
	if err := s.Load(ctx, report.Version); err != nil {
		return ingest.Report{}, err
	}
	return report, nil
}

// Ask routes question against the snapshot current at call time.
func (s *Service) Ask(ctx context.Context, question string) (*router.Result, error) {
	for {
		snap := s.current.Load()
		if snap == nil {
			return nil, ErrNotReady
		}
		snap.mu.RLock()
		if snap.retired {
			// swapped out between Load and RLock
			snap.mu.RUnlock()
			continue
		}
		res, err := snap.router.Route(ctx, question)
		snap.mu.RUnlock()
		return res, err
	}
}

// Schema returns the schema text of the current snapshot.
func (s *Service) Schema() string {
	if snap := s.current.Load(); snap != nil {
		return snap.Schema
	}
	return ""
}

// Version returns the current snapshot version, empty before the first load.
func (s *Service) Version() string {
	if snap := s.current.Load(); snap != nil {
		return snap.Version
	}
	return ""
}

func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Close retires the current snapshot.
func (s *Service) Close() error {
	if snap := s.current.Swap(nil); snap != nil {
		return snap.retire()
	}
	return nil
}

func (s *Service) open(ctx context.Context, version string) (*Snapshot, error) {
	store, err := s.opts.Catalog.Open(version)
	if err != nil {
		return nil, err
	}
	snap, err := s.build(ctx, version, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return snap, nil
}

func (s *Service) build(ctx context.Context, version string, store *storage.Store) (*Snapshot, error) {
	schema, err := store.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", version, err)
	}
	entries, err := store.FAQEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading faq of %s: %w", version, err)
	}
	index, err := retrieval.BuildIndex(ctx, entries, s.opts.Embedder)
	if err != nil {
		return nil, fmt.Errorf("building semantic index of %s: %w", version, err)
	}

	r := router.New(router.Deps{
		Lexical:    lexical.NewSearcher(store.DB()),
		Semantic:   retrieval.NewSearcher(index, s.opts.Embedder),
		Translator: s.opts.Translator,
		Executor:   store,
		Schema:     schema,
	}, s.opts.Limits)

	return &Snapshot{
		Version: version,
		Schema:  schema,
		FAQSize: len(entries),
		store:   store,
		router:  r,
	}, nil
}

func (snap *Snapshot) retire() error {
	snap.mu.Lock()
	defer snap.mu.Unlock()
	if snap.retired {
		return nil
	}
	snap.retired = true
	return snap.store.Close()
}
