package service

import (
	"testing"

	"pharmadb-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnProfiler_ProfileAllColumns(t *testing.T) {
	ds := parseDataset(t, "t", "id,unit,dose\n1,mg,10\n2,mg,\n3,IU,10\n4,mg,20\n")

	profiles := NewColumnProfiler().ProfileAllColumns(ds)
	require.Len(t, profiles, 3)

	id := profiles[0]
	assert.Equal(t, "id", id.ColumnName)
	assert.Equal(t, models.ColumnNumeric, id.Type)
	assert.True(t, id.IsKey)
	assert.Equal(t, 1.0, id.UniquenessRatio)
	assert.InDelta(t, 2.0, id.Entropy, 1e-9)

	unit := profiles[1]
	assert.False(t, unit.IsKey)
	assert.Equal(t, 2, unit.DistinctCount)

	dose := profiles[2]
	assert.Equal(t, 4, dose.TotalRows)
	assert.Equal(t, 3, dose.NonNullRows)
	assert.InDelta(t, 0.25, dose.NullRate, 1e-9)
	assert.False(t, dose.IsKey)
}

func TestColumnProfiler_UnknownColumn(t *testing.T) {
	ds := parseDataset(t, "t", "id\n1\n")

	p := NewColumnProfiler().ProfileColumn(ds, models.Column{Name: "nope"})
	assert.Equal(t, 1, p.TotalRows)
	assert.Equal(t, 0, p.NonNullRows)
	assert.Equal(t, 0.0, p.Entropy)
}
