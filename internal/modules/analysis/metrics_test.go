package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBucketTable(dimension string) *RiskTable {
	return &RiskTable{
		Dimension: dimension,
		Rows: []RiskRow{
			{Bucket: "Major", Value: 600, Percent: 60},
			{Bucket: "Minor", Value: 400, Percent: 40},
		},
	}
}

func TestMeasure_ConcentrationNumbers(t *testing.T) {
	tables := map[string]*RiskTable{DimAssetClass: twoBucketTable(DimAssetClass)}

	metrics := Measure(tables, nil)

	m, ok := metrics[DimAssetClass]
	require.True(t, ok)
	assert.InDelta(t, 0.52, m.HHI, 1e-9)
	assert.InDelta(t, 1/0.52, m.EffectiveBuckets, 1e-9)
	assert.InDelta(t, 0.6730116670092565, m.Entropy, 1e-9)
	assert.Equal(t, "Major", m.TopBucket)
	assert.InDelta(t, 60, m.TopShare, 1e-9)
}

func TestMeasure_LevelsAreStrict(t *testing.T) {
	tables := map[string]*RiskTable{
		DimAssetClass: twoBucketTable(DimAssetClass),
		DimCurrency:   twoBucketTable(DimCurrency),
	}
	positions := []PositionRow{
		{Name: "Apple Inc", Percent: 60},
		{Name: "Girokonto", Percent: 40},
	}

	metrics := Measure(tables, positions)

	// 60 clears the 49.5 medium bound for asset classes but sits exactly
	// on the 60 bound for currencies, which only a strictly greater
	// share may cross.
	assert.Equal(t, "medium", metrics[DimAssetClass].Level)
	assert.Equal(t, "low", metrics[DimCurrency].Level)

	pos, ok := metrics[DimPositions]
	require.True(t, ok)
	assert.Equal(t, "high", pos.Level)
	assert.Equal(t, "Apple Inc", pos.TopBucket)
	assert.Equal(t, Threshold{High: 10, Medium: 5}, pos.Threshold)
}

func TestMeasure_EmptyTable(t *testing.T) {
	tables := map[string]*RiskTable{
		DimCurrency: {Dimension: DimCurrency},
	}

	metrics := Measure(tables, nil)

	m := metrics[DimCurrency]
	require.NotNil(t, m)
	assert.Zero(t, m.HHI)
	assert.Zero(t, m.EffectiveBuckets)
	assert.Empty(t, m.TopBucket)
	assert.Equal(t, "low", m.Level)
}

func TestThresholdFor(t *testing.T) {
	assert.Equal(t, Threshold{High: 25, Medium: 15}, ThresholdFor(DimSector))
	assert.Equal(t, ThresholdFor(DimCurrency), ThresholdFor(DimCurrencyPermissive),
		"the permissive currency view shares the currency bounds")

	all := Thresholds()
	require.Contains(t, all, DimCountry)
	assert.Equal(t, Threshold{High: 50, Medium: 30}, all[DimCountry])
}
