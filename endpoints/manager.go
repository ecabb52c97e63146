package endpoints

import (
	"encoding/json"
	"sync"

	"github.com/CodeDeck/codedeck_backend/log"
)

// JSONCollector is one named section of the /metrics document.
type JSONCollector interface {
	JSON() []byte
	PartName() string
}

type Manager interface {
	Register(c ...JSONCollector) *MetricsManager
	AggregateJSON() []byte
}

type MetricsManager struct {
	mu         sync.Mutex
	collectors []JSONCollector
}

func NewManager() *MetricsManager {
	return &MetricsManager{
		collectors: []JSONCollector{},
	}
}

func (m *MetricsManager) Register(c ...JSONCollector) *MetricsManager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectors = append(m.collectors, c...)
	return m
}

// AggregateJSON merges every collector's document under its part name.
// Collectors producing invalid JSON are left out.
func (m *MetricsManager) AggregateJSON() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	aggregated := make(map[string]json.RawMessage, len(m.collectors))
	for _, c := range m.collectors {
		data := c.JSON()
		if !json.Valid(data) {
			log.Logger.WithField("part", c.PartName()).Warn("Collector produced invalid JSON, skipping")
			continue
		}
		aggregated[c.PartName()] = data
	}

	b, _ := json.MarshalIndent(aggregated, "", "  ")
	return b
}
