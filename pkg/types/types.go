package types

// MetricType is the declared type of a metric, taken from its "# TYPE" line.
type MetricType int

const (
	// Untyped is the default when no "# TYPE" line precedes a metric's
	// samples, or when a "# TYPE" line carries no keyword.
	Untyped MetricType = iota
	Counter
	Gauge
	Histogram
	Summary
)

var metricTypeNames = map[MetricType]string{
	Untyped:   "untyped",
	Counter:   "counter",
	Gauge:     "gauge",
	Histogram: "histogram",
	Summary:   "summary",
}

// MetricTypeByKeyword maps the five recognized "# TYPE" keywords to their type.
var MetricTypeByKeyword = map[string]MetricType{
	"counter":   Counter,
	"gauge":     Gauge,
	"histogram": Histogram,
	"untyped":   Untyped,
	"summary":   Summary,
}

func (t MetricType) String() string {
	if s, ok := metricTypeNames[t]; ok {
		return s
	}
	return "untyped"
}

// Sample is a single observation on a sample line.
type Sample struct {
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	// Timestamp is milliseconds since epoch. Nil means the sample line
	// carried no timestamp at all, which is distinct from zero.
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// Metric aggregates every line mentioning one metric name across a parse.
type Metric struct {
	Name string     `json:"name"`
	Type MetricType `json:"type"`
	// Help is present in the model but never populated by the fold; see
	// the open-question note in DESIGN.md.
	Help    string   `json:"help,omitempty"`
	Samples []Sample `json:"samples"`
}

// IngestResponse is returned by the ingest endpoint on success.
type IngestResponse struct {
	Status  string `json:"status"`
	Metrics int    `json:"metrics"`
}

// QueryResponse wraps a single fetched metric snapshot.
type QueryResponse struct {
	Metric *Metric `json:"metric"`
}

// NamesResponse lists stored metric names for a tenant.
type NamesResponse struct {
	Names []string `json:"names"`
}
