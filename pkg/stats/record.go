// Package stats reduces Logs Insights result rows into typed cold-start statistics.
package stats

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one field/value pair of a query result row.
type Field struct {
	Name  string
	Value string
}

// Row is one aggregation bucket returned by the query engine.
type Row []Field

// Record holds the statistics of one bucket. Durations are in milliseconds.
type Record struct {
	MemorySize float64 `json:"memory_size_mb" yaml:"memory_size_mb"`
	Count      uint64  `json:"count" yaml:"count"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
	StdDev     float64 `json:"stddev" yaml:"stddev"`
	P50        float64 `json:"p50" yaml:"p50"`
	P75        float64 `json:"p75" yaml:"p75"`
	P99        float64 `json:"p99" yaml:"p99"`
	P995       float64 `json:"p995" yaml:"p995"`
	P999       float64 `json:"p999" yaml:"p999"`
}

// Recognized field names.
const (
	FieldMemorySize = "memorySize"
	FieldCount      = "count"
	FieldColdStarts = "cold_starts"
	FieldMin        = "min"
	FieldMax        = "max"
	FieldStdDev     = "stddev"
	FieldP50        = "p50"
	FieldP75        = "p75"
	FieldP99        = "p99"
	FieldP995       = "p995"
	FieldP999       = "p999"
)

// ParseError reports a recognized field whose value does not parse.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stats: field %q has malformed value %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Update stores f into the attribute it names. Unknown names are ignored.
func (r *Record) Update(f Field) error {
	name := strings.TrimSpace(f.Name)
	value := strings.TrimSpace(f.Value)

	if name == FieldCount || name == FieldColdStarts {
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return &ParseError{Field: name, Value: f.Value, Err: err}
		}
		r.Count = n
		return nil
	}

	dst := r.floatField(name)
	if dst == nil {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return &ParseError{Field: name, Value: f.Value, Err: err}
	}
	*dst = v
	return nil
}

func (r *Record) floatField(name string) *float64 {
	switch name {
	case FieldMemorySize:
		return &r.MemorySize
	case FieldMin:
		return &r.Min
	case FieldMax:
		return &r.Max
	case FieldStdDev:
		return &r.StdDev
	case FieldP50:
		return &r.P50
	case FieldP75:
		return &r.P75
	case FieldP99:
		return &r.P99
	case FieldP995:
		return &r.P995
	case FieldP999:
		return &r.P999
	default:
		return nil
	}
}

// Metrics returns the duration statistics keyed by field name, in a stable order.
func (r Record) Metrics() []Metric {
	return []Metric{
		{Name: FieldMin, Value: r.Min},
		{Name: FieldMax, Value: r.Max},
		{Name: FieldStdDev, Value: r.StdDev},
		{Name: FieldP50, Value: r.P50},
		{Name: FieldP75, Value: r.P75},
		{Name: FieldP99, Value: r.P99},
		{Name: FieldP995, Value: r.P995},
		{Name: FieldP999, Value: r.P999},
	}
}

// Metric is a single named duration statistic.
type Metric struct {
	Name  string
	Value float64
}
