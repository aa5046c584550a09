package models

import "fmt"

// LeftJoin keeps every left row, paired with each right row that shares
// its key. Left rows without a match get null right columns. A right
// column whose name is already taken on the left is suffixed with "_y".
func LeftJoin(left, right *Dataset, key string) (*Dataset, error) {
	_, li, ok := left.schema.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("join %s: %w: %s", left.Name, ErrNoSuchColumn, key)
	}
	_, ri, ok := right.schema.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("join %s: %w: %s", right.Name, ErrNoSuchColumn, key)
	}

	cols := left.schema.Columns()
	var rightIdx []int
	for j, c := range right.schema.columns {
		if j == ri {
			continue
		}
		if _, _, taken := left.schema.Lookup(c.Name); taken {
			c.Name += "_y"
		}
		cols = append(cols, c)
		rightIdx = append(rightIdx, j)
	}
	schema, err := NewSchema(cols)
	if err != nil {
		return nil, fmt.Errorf("join %s with %s: %w", left.Name, right.Name, err)
	}

	byKey := make(map[string][]Record)
	for _, r := range right.records {
		k, ok := r.values[ri].Key()
		if !ok {
			continue
		}
		byKey[k] = append(byKey[k], r)
	}

	out := &Dataset{Name: left.Name + "+" + right.Name, schema: schema}
	for _, l := range left.records {
		var matches []Record
		if k, ok := l.values[li].Key(); ok {
			matches = byKey[k]
		}
		if len(matches) == 0 {
			values := make([]Value, 0, len(cols))
			values = append(values, l.values...)
			for range rightIdx {
				values = append(values, NullValue())
			}
			out.records = append(out.records, Record{schema: schema, values: values})
			continue
		}
		for _, m := range matches {
			values := make([]Value, 0, len(cols))
			values = append(values, l.values...)
			for _, j := range rightIdx {
				values = append(values, m.values[j])
			}
			out.records = append(out.records, Record{schema: schema, values: values})
		}
	}
	return out, nil
}
