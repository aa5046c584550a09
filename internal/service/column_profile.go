package service

import (
	"math"

	"pharmadb-backend/internal/models"
)

// ColumnProfile describes one column for the filter picker
type ColumnProfile struct {
	ColumnName      string            `json:"column_name"`
	Type            models.ColumnType `json:"type"`
	TotalRows       int               `json:"total_rows"`
	NonNullRows     int               `json:"non_null_rows"`
	NullRate        float64           `json:"null_rate"`
	DistinctCount   int               `json:"distinct_count"`
	UniquenessRatio float64           `json:"uniqueness_ratio"`
	Entropy         float64           `json:"entropy"`
	IsKey           bool              `json:"is_key"`
}

// ColumnProfiler computes per-column summaries of a dataset
type ColumnProfiler struct{}

func NewColumnProfiler() *ColumnProfiler {
	return &ColumnProfiler{}
}

// ProfileColumn analyzes one column
func (cp *ColumnProfiler) ProfileColumn(ds *models.Dataset, column models.Column) ColumnProfile {
	profile := ColumnProfile{
		ColumnName: column.Name,
		Type:       column.Type,
		TotalRows:  ds.Len(),
	}

	values, err := ds.Column(column.Name)
	if err != nil {
		return profile
	}

	uniqueValues := make(map[string]int)
	nonNullCount := 0
	for _, v := range values {
		key, ok := v.Key()
		if !ok {
			continue
		}
		nonNullCount++
		uniqueValues[key]++
	}

	profile.NonNullRows = nonNullCount
	profile.DistinctCount = len(uniqueValues)

	if profile.TotalRows > 0 {
		profile.NullRate = float64(profile.TotalRows-nonNullCount) / float64(profile.TotalRows)
	}
	if nonNullCount > 0 {
		profile.UniquenessRatio = float64(profile.DistinctCount) / float64(nonNullCount)
	}
	profile.Entropy = cp.calculateEntropy(uniqueValues, nonNullCount)

	// every row present and distinct
	profile.IsKey = nonNullCount > 0 && nonNullCount == profile.TotalRows && profile.DistinctCount == nonNullCount

	return profile
}

// ProfileAllColumns profiles every column in schema order
func (cp *ColumnProfiler) ProfileAllColumns(ds *models.Dataset) []ColumnProfile {
	columns := ds.Schema().Columns()
	profiles := make([]ColumnProfile, len(columns))
	for i, c := range columns {
		profiles[i] = cp.ProfileColumn(ds, c)
	}
	return profiles
}

// calculateEntropy computes Shannon entropy in bits
func (cp *ColumnProfiler) calculateEntropy(valueCounts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range valueCounts {
		if count > 0 {
			p := float64(count) / float64(total)
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}
