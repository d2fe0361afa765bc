package observability

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// CounterPoint is the cumulative value of one counter for one attribute set.
type CounterPoint struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// Counters collects the current value of every int64 counter held by the metric reader.
// Points are ordered by counter name.
func (i *Instruments) Counters(ctx context.Context) ([]CounterPoint, error) {
	if i == nil || i.MetricReader == nil {
		return nil, nil
	}
	var rm metricdata.ResourceMetrics
	if err := i.MetricReader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	points := make([]CounterPoint, 0)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				attrs := make(map[string]string, dp.Attributes.Len())
				for _, kv := range dp.Attributes.ToSlice() {
					attrs[string(kv.Key)] = kv.Value.Emit()
				}
				points = append(points, CounterPoint{Name: m.Name, Attributes: attrs, Value: dp.Value})
			}
		}
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].Name < points[b].Name })
	return points, nil
}
