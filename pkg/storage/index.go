package storage

import (
	"sort"
	"sync"

	"github.com/vvikramc/promexpo/pkg/types"
)

// Index is the in-memory catalog of stored metric snapshots. It answers name
// listings and label-selector lookups without touching the key-value store,
// and is rebuilt from disk on startup.
type Index struct {
	mu      sync.RWMutex
	tenants map[string]*tenantIndex
}

type tenantIndex struct {
	// name -> snapshot metadata
	metrics map[string]*metricMeta
	// Inverted index: label name -> label value -> metric names
	labelIndex map[string]map[string]map[string]struct{}
}

type metricMeta struct {
	Type        types.MetricType
	SampleCount int
	// labelPairs records the postings this metric currently owns so that a
	// snapshot overwrite can retract them.
	labelPairs map[[2]string]struct{}
}

// NewIndex creates a new index.
func NewIndex() *Index {
	return &Index{tenants: make(map[string]*tenantIndex)}
}

func (idx *Index) tenant(tenantID string) *tenantIndex {
	ti, ok := idx.tenants[tenantID]
	if !ok {
		ti = &tenantIndex{
			metrics:    make(map[string]*metricMeta),
			labelIndex: make(map[string]map[string]map[string]struct{}),
		}
		idx.tenants[tenantID] = ti
	}
	return ti
}

// AddMetric registers (or replaces) the snapshot metadata for one metric.
func (idx *Index) AddMetric(tenantID string, m *types.Metric) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ti := idx.tenant(tenantID)
	if old, ok := ti.metrics[m.Name]; ok {
		ti.retractLocked(m.Name, old)
	}

	meta := &metricMeta{
		Type:        m.Type,
		SampleCount: len(m.Samples),
		labelPairs:  make(map[[2]string]struct{}),
	}
	for _, s := range m.Samples {
		for name, value := range s.Labels {
			meta.labelPairs[[2]string{name, value}] = struct{}{}
		}
	}
	ti.metrics[m.Name] = meta

	for pair := range meta.labelPairs {
		values, ok := ti.labelIndex[pair[0]]
		if !ok {
			values = make(map[string]map[string]struct{})
			ti.labelIndex[pair[0]] = values
		}
		names, ok := values[pair[1]]
		if !ok {
			names = make(map[string]struct{})
			values[pair[1]] = names
		}
		names[m.Name] = struct{}{}
	}
}

func (ti *tenantIndex) retractLocked(name string, meta *metricMeta) {
	for pair := range meta.labelPairs {
		if values, ok := ti.labelIndex[pair[0]]; ok {
			if names, ok := values[pair[1]]; ok {
				delete(names, name)
				if len(names) == 0 {
					delete(values, pair[1])
				}
			}
			if len(values) == 0 {
				delete(ti.labelIndex, pair[0])
			}
		}
	}
	delete(ti.metrics, name)
}

// GetMeta retrieves snapshot metadata for one metric name.
func (idx *Index) GetMeta(tenantID, name string) (types.MetricType, int, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ti, ok := idx.tenants[tenantID]
	if !ok {
		return types.Untyped, 0, false
	}
	meta, ok := ti.metrics[name]
	if !ok {
		return types.Untyped, 0, false
	}
	return meta.Type, meta.SampleCount, true
}

// Names returns the sorted metric names for a tenant. A non-empty selector
// restricts the result to metrics carrying every given label pair on at least
// one sample.
func (idx *Index) Names(tenantID string, selector map[string]string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ti, ok := idx.tenants[tenantID]
	if !ok {
		return nil
	}

	if len(selector) == 0 {
		names := make([]string, 0, len(ti.metrics))
		for name := range ti.metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}

	var result map[string]struct{}
	for labelName, labelValue := range selector {
		values, ok := ti.labelIndex[labelName]
		if !ok {
			return nil
		}
		names, ok := values[labelValue]
		if !ok {
			return nil
		}

		if result == nil {
			result = make(map[string]struct{}, len(names))
			for name := range names {
				result[name] = struct{}{}
			}
			continue
		}
		for name := range result {
			if _, ok := names[name]; !ok {
				delete(result, name)
			}
		}
		if len(result) == 0 {
			return nil
		}
	}

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetricCount returns the number of indexed metrics for a tenant.
func (idx *Index) MetricCount(tenantID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ti, ok := idx.tenants[tenantID]
	if !ok {
		return 0
	}
	return len(ti.metrics)
}

// Clear clears the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tenants = make(map[string]*tenantIndex)
}
