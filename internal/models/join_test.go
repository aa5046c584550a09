package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeftJoin(t *testing.T) {
	left := newTestDataset(t, "formulated_drugs",
		[]Column{{Name: "product_id", Type: ColumnNumeric}, {Name: "parent_drug_id", Type: ColumnNumeric}, {Name: "notes", Type: ColumnText}},
		[][]Value{
			{NumberValue(1, ""), NumberValue(10, ""), TextValue("a")},
			{NumberValue(2, ""), NumberValue(99, ""), TextValue("b")},
			{NumberValue(3, ""), NullValue(), TextValue("c")},
		},
	)
	right := newTestDataset(t, "parent_drugs",
		[]Column{{Name: "parent_drug_id", Type: ColumnNumeric}, {Name: "p_smiles", Type: ColumnText}, {Name: "notes", Type: ColumnText}},
		[][]Value{
			{NumberValue(10, "10.0"), TextValue("CC(=O)O"), TextValue("parent note")},
		},
	)

	out, err := LeftJoin(left, right, "parent_drug_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"product_id", "parent_drug_id", "notes", "p_smiles", "notes_y"}, out.Schema().Names())
	require.Equal(t, 3, out.Len())

	first := out.Record(0)
	assert.Equal(t, "CC(=O)O", first.Value("p_smiles").String())
	assert.Equal(t, "a", first.Value("notes").String())
	assert.Equal(t, "parent note", first.Value("notes_y").String())

	// unmatched key and null key both keep the left row with null right columns
	assert.True(t, out.Record(1).Value("p_smiles").IsNull())
	assert.True(t, out.Record(2).Value("p_smiles").IsNull())
}

func TestLeftJoin_MultipleMatches(t *testing.T) {
	left := newTestDataset(t, "formulations",
		[]Column{{Name: "product_id", Type: ColumnNumeric}, {Name: "excipient_id", Type: ColumnText}},
		[][]Value{{NumberValue(1, ""), TextValue("E1")}},
	)
	right := newTestDataset(t, "excipients",
		[]Column{{Name: "excipient_id", Type: ColumnText}, {Name: "excipient_name", Type: ColumnText}},
		[][]Value{
			{TextValue("E1"), TextValue("Lactose")},
			{TextValue("E1"), TextValue("Lactose monohydrate")},
		},
	)

	out, err := LeftJoin(left, right, "excipient_id")
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "Lactose", out.Record(0).Value("excipient_name").String())
	assert.Equal(t, "Lactose monohydrate", out.Record(1).Value("excipient_name").String())
}

func TestLeftJoin_MissingKey(t *testing.T) {
	left := newTestDataset(t, "l", []Column{{Name: "a"}}, nil)
	right := newTestDataset(t, "r", []Column{{Name: "b"}}, nil)

	_, err := LeftJoin(left, right, "a")
	assert.ErrorIs(t, err, ErrNoSuchColumn)
}

func TestNewCatalog_RequiresEveryTable(t *testing.T) {
	empty := newTestDataset(t, "x", []Column{{Name: "a"}}, nil)
	tables := map[string]*Dataset{}
	for _, name := range TableNames[1:] {
		tables[name] = empty
	}

	_, err := NewCatalog(tables)
	assert.ErrorIs(t, err, ErrMissingTable)

	tables[TableNames[0]] = empty
	c, err := NewCatalog(tables)
	require.NoError(t, err)
	_, ok := c.Table(TableDrugProducts)
	assert.True(t, ok)
}

func TestRule_Metric(t *testing.T) {
	r := Rule{Support: 0.1, Confidence: 0.5, Coverage: 0.2, Lift: 2.5}
	v, ok := r.Metric(MetricLift)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = r.Metric("count")
	assert.False(t, ok)
}
