package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vvikramc/promexpo/pkg/textparse"
	"github.com/vvikramc/promexpo/pkg/types"
)

// ErrNotFound is returned by Fetch when no snapshot exists for a name.
var ErrNotFound = errors.New("storage: metric not found")

// Storage persists parsed metric snapshots per tenant. Each ingested payload
// replaces the previous snapshot of every metric name it mentions.
type Storage interface {
	// Ingest parses an exposition-format payload and stores the resulting
	// snapshots. It returns the number of metrics stored. A parse failure
	// leaves the store untouched.
	Ingest(ctx context.Context, tenantID, payload string) (int, error)

	// Store writes already-parsed metric snapshots.
	Store(ctx context.Context, tenantID string, metrics []types.Metric) error

	// Fetch returns one metric snapshot, or ErrNotFound.
	Fetch(ctx context.Context, tenantID, name string) (*types.Metric, error)

	// Names lists stored metric names, optionally filtered by a label
	// selector (every pair must match some sample of the metric).
	Names(ctx context.Context, tenantID string, selector map[string]string) ([]string, error)

	// Close closes the storage.
	Close() error
}

// Config holds storage configuration.
type Config struct {
	Path             string
	CompressionLevel int
	EnableWAL        bool
	CacheCapacity    int
	CacheTTL         time.Duration
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
		EnableWAL:        true,
		CacheCapacity:    1024,
		CacheTTL:         5 * time.Minute,
	}
}

// badgerStore implements Storage using BadgerDB.
type badgerStore struct {
	cfg        *Config
	db         *badger.DB
	index      *Index
	compressor *Compressor
	cache      *FetchCache
	wal        *WAL
	mu         sync.RWMutex
}

// NewStorage creates a new storage instance, rebuilding the in-memory index
// from disk and replaying any write-ahead log left by an unclean shutdown.
func NewStorage(cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	compressor, err := NewCompressor(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	s := &badgerStore{
		cfg:        cfg,
		db:         db,
		index:      NewIndex(),
		compressor: compressor,
		cache:      NewFetchCache(cfg.CacheCapacity, cfg.CacheTTL),
	}

	if err := s.rebuildIndex(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	if cfg.EnableWAL {
		if err := ReplayWAL(cfg.Path, s.replayPayload); err != nil {
			s.Close()
			return nil, fmt.Errorf("WAL replay failed: %w", err)
		}
		wal, err := NewWAL(cfg.Path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open WAL: %w", err)
		}
		s.wal = wal
	}

	return s, nil
}

// replayPayload re-applies one recorded ingest during recovery.
func (s *badgerStore) replayPayload(tenantID, payload string) error {
	metrics, err := textparse.Parse(payload)
	if err != nil {
		return fmt.Errorf("recorded payload no longer parses: %w", err)
	}
	return s.Store(context.Background(), tenantID, metrics)
}

// Ingest implements Storage.Ingest.
func (s *badgerStore) Ingest(ctx context.Context, tenantID, payload string) (int, error) {
	// Parse first: malformed payloads never reach the WAL or the store.
	metrics, err := textparse.Parse(payload)
	if err != nil {
		return 0, err
	}

	if s.wal != nil {
		if err := s.wal.Append(tenantID, payload); err != nil {
			return 0, fmt.Errorf("WAL append failed: %w", err)
		}
	}

	if err := s.Store(ctx, tenantID, metrics); err != nil {
		return 0, err
	}
	return len(metrics), nil
}

// Store implements Storage.Store.
func (s *badgerStore) Store(ctx context.Context, tenantID string, metrics []types.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range metrics {
		m := &metrics[i]
		if err := s.writeSnapshot(tenantID, m); err != nil {
			return fmt.Errorf("failed to store %q: %w", m.Name, err)
		}
		s.index.AddMetric(tenantID, m)
		s.cache.Invalidate(tenantID, m.Name)
	}

	return nil
}

// metricPayload is the on-disk encoding of one metric snapshot.
type metricPayload struct {
	Type       int    `json:"type"`
	Help       string `json:"help,omitempty"`
	Count      int    `json:"count"`
	Labels     []byte `json:"labels,omitempty"`
	Values     []byte `json:"values,omitempty"`
	Timestamps []byte `json:"timestamps,omitempty"`
	// TSBitmap marks which samples carried a timestamp; Timestamps holds
	// only the marked ones, in order.
	TSBitmap []byte `json:"ts_bitmap,omitempty"`
}

// writeSnapshot encodes and writes one snapshot to BadgerDB.
func (s *badgerStore) writeSnapshot(tenantID string, m *types.Metric) error {
	values := make([]float64, len(m.Samples))
	labelSets := make([]map[string]string, len(m.Samples))
	bitmap := make([]byte, (len(m.Samples)+7)/8)
	var timestamps []int64

	for i, sample := range m.Samples {
		values[i] = sample.Value
		labelSets[i] = sample.Labels
		if sample.Timestamp != nil {
			bitmap[i/8] |= 1 << uint(i%8)
			timestamps = append(timestamps, *sample.Timestamp)
		}
	}

	compressedVals, err := s.compressor.CompressValues(values)
	if err != nil {
		return fmt.Errorf("failed to compress values: %w", err)
	}
	compressedTS, err := s.compressor.CompressTimestamps(timestamps)
	if err != nil {
		return fmt.Errorf("failed to compress timestamps: %w", err)
	}
	compressedLabels, err := s.compressor.CompressLabels(labelSets)
	if err != nil {
		return fmt.Errorf("failed to compress labels: %w", err)
	}

	payload := &metricPayload{
		Type:       int(m.Type),
		Help:       m.Help,
		Count:      len(m.Samples),
		Labels:     compressedLabels,
		Values:     compressedVals,
		Timestamps: compressedTS,
		TSBitmap:   bitmap,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	key := snapshotKey(tenantID, m.Name)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payloadBytes)
	})
}

// Fetch implements Storage.Fetch.
func (s *badgerStore) Fetch(ctx context.Context, tenantID, name string) (*types.Metric, error) {
	if m, ok := s.cache.Get(tenantID, name); ok {
		return m, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var payloadBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(tenantID, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			payloadBytes = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	m, err := s.decodeSnapshot(name, payloadBytes)
	if err != nil {
		return nil, err
	}

	s.cache.Put(tenantID, name, m)
	return m, nil
}

// decodeSnapshot rebuilds a Metric from its on-disk payload.
func (s *badgerStore) decodeSnapshot(name string, payloadBytes []byte) (*types.Metric, error) {
	var payload metricPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	values, err := s.compressor.DecompressValues(payload.Values, payload.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress values: %w", err)
	}
	timestampCount := 0
	for i := 0; i < payload.Count; i++ {
		if payload.TSBitmap[i/8]&(1<<uint(i%8)) != 0 {
			timestampCount++
		}
	}
	timestamps, err := s.compressor.DecompressTimestamps(payload.Timestamps, timestampCount)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress timestamps: %w", err)
	}
	labelSets, err := s.compressor.DecompressLabels(payload.Labels, payload.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress labels: %w", err)
	}

	m := &types.Metric{
		Name:    name,
		Type:    types.MetricType(payload.Type),
		Help:    payload.Help,
		Samples: make([]types.Sample, payload.Count),
	}

	next := 0
	for i := 0; i < payload.Count; i++ {
		m.Samples[i] = types.Sample{
			Labels: labelSets[i],
			Value:  values[i],
		}
		if payload.TSBitmap[i/8]&(1<<uint(i%8)) != 0 {
			ts := timestamps[next]
			next++
			m.Samples[i].Timestamp = &ts
		}
	}

	return m, nil
}

// Names implements Storage.Names.
func (s *badgerStore) Names(ctx context.Context, tenantID string, selector map[string]string) ([]string, error) {
	return s.index.Names(tenantID, selector), nil
}

// rebuildIndex loads every stored snapshot into the in-memory index.
func (s *badgerStore) rebuildIndex() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			tenantID, name, ok := splitSnapshotKey(item.Key())
			if !ok {
				continue
			}

			var payloadBytes []byte
			if err := item.Value(func(val []byte) error {
				payloadBytes = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}

			m, err := s.decodeSnapshot(name, payloadBytes)
			if err != nil {
				return err
			}
			s.index.AddMetric(tenantID, m)
		}
		return nil
	})
}

// Close implements Storage.Close.
func (s *badgerStore) Close() error {
	if s.wal != nil {
		if err := s.wal.Close(); err != nil {
			return err
		}
	}
	if s.compressor != nil {
		s.compressor.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// snapshotKey builds the storage key for one metric snapshot. Metric names
// never contain NUL, so the separator cannot collide.
func snapshotKey(tenantID, name string) []byte {
	var buf bytes.Buffer
	buf.WriteString(tenantID)
	buf.WriteByte(0)
	buf.WriteString(name)
	return buf.Bytes()
}

// splitSnapshotKey is the inverse of snapshotKey.
func splitSnapshotKey(key []byte) (tenantID, name string, ok bool) {
	i := bytes.IndexByte(key, 0)
	if i < 0 {
		return "", "", false
	}
	return string(key[:i]), string(key[i+1:]), true
}
