package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Threshold is the concentration boundary for one dimension, in
// percent of the top bucket. Above High the dimension is flagged high
// risk, above Medium elevated.
type Threshold struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// riskThresholds holds the per-dimension defaults. A single position
// above 10% is already a cluster, while one asset class legitimately
// dominates most portfolios.
var riskThresholds = map[string]Threshold{
	DimAssetClass: {High: 75, Medium: 49.5},
	DimSector:     {High: 25, Medium: 15},
	DimCurrency:   {High: 80, Medium: 60},
	DimCountry:    {High: 50, Medium: 30},
	DimPositions:  {High: 10, Medium: 5},
}

// ThresholdFor returns the risk threshold for a dimension. The
// permissive currency table shares the strict table's threshold.
func ThresholdFor(dimension string) Threshold {
	if dimension == DimCurrencyPermissive {
		dimension = DimCurrency
	}
	return riskThresholds[dimension]
}

// Thresholds returns a copy of the per-dimension threshold table.
func Thresholds() map[string]Threshold {
	out := make(map[string]Threshold, len(riskThresholds))
	for dimension, t := range riskThresholds {
		out[dimension] = t
	}
	return out
}

// Metrics are concentration statistics over one dimension table.
// EffectiveBuckets is the inverse Herfindahl index: the number of
// equally-sized buckets that would produce the same concentration.
type Metrics struct {
	HHI              float64   `json:"hhi"`
	EffectiveBuckets float64   `json:"effective_buckets"`
	Entropy          float64   `json:"entropy"`
	TopBucket        string    `json:"top_bucket,omitempty"`
	TopShare         float64   `json:"top_share"`
	Threshold        Threshold `json:"threshold"`
	Level            string    `json:"level"`
}

// Measure computes metrics for every dimension table plus the merged
// position rows.
func Measure(tables map[string]*RiskTable, positions []PositionRow) map[string]*Metrics {
	out := make(map[string]*Metrics, len(tables)+1)

	for dimension, table := range tables {
		shares := make([]float64, len(table.Rows))
		top := ""
		for i := range table.Rows {
			shares[i] = table.Rows[i].Percent / 100
		}
		if len(table.Rows) > 0 {
			top = table.Rows[0].Bucket
		}
		out[dimension] = measure(dimension, top, shares)
	}

	shares := make([]float64, len(positions))
	top := ""
	for i := range positions {
		shares[i] = positions[i].Percent / 100
	}
	if len(positions) > 0 {
		top = positions[0].Name
	}
	out[DimPositions] = measure(DimPositions, top, shares)

	return out
}

func measure(dimension, topBucket string, shares []float64) *Metrics {
	m := &Metrics{
		TopBucket: topBucket,
		Threshold: ThresholdFor(dimension),
		Level:     "low",
	}
	if len(shares) == 0 {
		return m
	}

	m.HHI = floats.Dot(shares, shares)
	if m.HHI > 0 {
		m.EffectiveBuckets = 1 / m.HHI
	}
	m.Entropy = stat.Entropy(shares)
	m.TopShare = shares[0] * 100

	switch {
	case m.TopShare > m.Threshold.High:
		m.Level = "high"
	case m.TopShare > m.Threshold.Medium:
		m.Level = "medium"
	}
	return m
}
