package ml

import (
	"sort"
)

// binMapper discretizes one feature column into at most maxBins buckets.
// Bucket b holds values in (edges[b-1], edges[b]]; the last bucket holds
// everything above the final edge.
type binMapper struct {
	edges []float64
}

func newBinMapper(values []float64, maxBins int) binMapper {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) <= 1 {
		return binMapper{}
	}

	var edges []float64
	if len(unique) <= maxBins {
		edges = make([]float64, 0, len(unique)-1)
		for i := 0; i < len(unique)-1; i++ {
			edges = append(edges, (unique[i]+unique[i+1])/2)
		}
		return binMapper{edges: edges}
	}

	// Quantile edges over the full sample, deduplicated.
	n := len(sorted)
	for k := 1; k < maxBins; k++ {
		idx := k * n / maxBins
		if idx >= n {
			idx = n - 1
		}
		e := sorted[idx]
		if e >= unique[len(unique)-1] {
			break
		}
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	return binMapper{edges: edges}
}

func (m binMapper) numBins() int {
	return len(m.edges) + 1
}

func (m binMapper) bin(v float64) int {
	return sort.SearchFloat64s(m.edges, v)
}
