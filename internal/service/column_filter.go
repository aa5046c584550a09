package service

import (
	"errors"
	"fmt"
	"strings"

	"pharmadb-backend/internal/analysis"
	"pharmadb-backend/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrFilterKind    = errors.New("filter kind does not match column type")
)

// domainSteps is the number of slider steps across a numeric domain
const domainSteps = 100

// Predicate reports whether a record passes a compiled filter
type Predicate func(models.Record) bool

// ColumnDomain is the range a numeric filter may select from, taken from
// the dataset being filtered.
type ColumnDomain struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Step   float64 `json:"step"`
	// Fixed is set when min == max; the default range is that single point.
	Fixed bool `json:"fixed"`
	// Empty is set when the column has no numeric values at all.
	Empty bool `json:"empty"`
}

// ColumnFilterCompiler turns per-column user constraints into one predicate.
// It holds no state; every call is a pure function of its arguments.
type ColumnFilterCompiler struct{}

func NewColumnFilterCompiler() *ColumnFilterCompiler {
	return &ColumnFilterCompiler{}
}

// Domain computes [min, max] of a numeric column over ds.
func (c *ColumnFilterCompiler) Domain(ds *models.Dataset, column string) (ColumnDomain, error) {
	col, _, ok := ds.Schema().Lookup(column)
	if !ok {
		return ColumnDomain{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if col.Type != models.ColumnNumeric {
		return ColumnDomain{}, fmt.Errorf("%w: %s is %s", ErrFilterKind, column, col.Type)
	}

	values, err := ds.Column(column)
	if err != nil {
		return ColumnDomain{}, err
	}
	stats, err := analysis.CalculateStats(values)
	if errors.Is(err, analysis.ErrNoNumericValues) {
		return ColumnDomain{Column: column, Empty: true, Fixed: true}, nil
	}
	if err != nil {
		return ColumnDomain{}, err
	}

	d := ColumnDomain{Column: column, Min: stats.Min, Max: stats.Max}
	if stats.Min == stats.Max {
		d.Fixed = true
		return d, nil
	}
	d.Step = (stats.Max - stats.Min) / domainSteps
	return d, nil
}

// Domains lists the domain of every numeric column, in schema order
func (c *ColumnFilterCompiler) Domains(ds *models.Dataset) []ColumnDomain {
	var out []ColumnDomain
	for _, col := range ds.Schema().Columns() {
		if col.Type != models.ColumnNumeric {
			continue
		}
		if d, err := c.Domain(ds, col.Name); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// FilterDomains lists numeric domains as the specs see them. A column
// named by a range spec gets its domain over ds narrowed by the specs
// before it; other numeric columns keep their domain over ds. Output is in
// schema order.
func (c *ColumnFilterCompiler) FilterDomains(ds *models.Dataset, specs []models.ColumnFilterSpec) ([]ColumnDomain, error) {
	narrowed := make(map[string]ColumnDomain)
	current := ds
	for _, spec := range specs {
		spec, err := c.Validate(current.Schema(), spec)
		if err != nil {
			return nil, err
		}
		if spec.Kind == models.FilterRange {
			d, err := c.Domain(current, spec.Column)
			if err != nil {
				return nil, err
			}
			narrowed[spec.Column] = d
		}
		p, err := c.compileOne(current, spec)
		if err != nil {
			return nil, err
		}
		if p != nil {
			current = current.Where(p)
		}
	}

	out := c.Domains(ds)
	for i, d := range out {
		if n, ok := narrowed[d.Column]; ok {
			out[i] = n
		}
	}
	return out, nil
}

// Compile builds the conjunction of all specs. Specs are resolved in order:
// each numeric domain is computed over ds as already narrowed by the specs
// before it, so the result equals applying the specs one after another.
func (c *ColumnFilterCompiler) Compile(ds *models.Dataset, specs []models.ColumnFilterSpec) (Predicate, error) {
	var preds []Predicate
	current := ds
	for _, spec := range specs {
		p, err := c.compileOne(current, spec)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		preds = append(preds, p)
		current = current.Where(p)
	}

	return func(r models.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

// Apply returns the records of ds passing every spec, in original order.
func (c *ColumnFilterCompiler) Apply(ds *models.Dataset, specs []models.ColumnFilterSpec) (*models.Dataset, error) {
	pred, err := c.Compile(ds, specs)
	if err != nil {
		return nil, err
	}
	return ds.Where(pred), nil
}

// Validate checks that specs name existing columns with matching kinds
func (c *ColumnFilterCompiler) Validate(schema *models.Schema, spec models.ColumnFilterSpec) (models.ColumnFilterSpec, error) {
	col, _, ok := schema.Lookup(spec.Column)
	if !ok {
		return spec, fmt.Errorf("%w: %s", ErrUnknownColumn, spec.Column)
	}
	want := models.FilterPattern
	if col.Type == models.ColumnNumeric {
		want = models.FilterRange
	}
	if spec.Kind == "" {
		spec.Kind = want
	}
	if spec.Kind != want {
		return spec, fmt.Errorf("%w: %s filter on %s column %s", ErrFilterKind, spec.Kind, col.Type, spec.Column)
	}
	if spec.Kind == models.FilterRange && spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
		return spec, fmt.Errorf("%w: min %v above max %v on %s", ErrFilterKind, *spec.Min, *spec.Max, spec.Column)
	}
	return spec, nil
}

// compileOne returns nil when the spec imposes no constraint.
func (c *ColumnFilterCompiler) compileOne(ds *models.Dataset, spec models.ColumnFilterSpec) (Predicate, error) {
	spec, err := c.Validate(ds.Schema(), spec)
	if err != nil {
		return nil, err
	}

	if spec.Kind == models.FilterPattern {
		return textPredicate(spec.Column, spec.Pattern), nil
	}

	domain, err := c.Domain(ds, spec.Column)
	if err != nil {
		return nil, err
	}
	if domain.Empty {
		// missing values never pass a range
		return func(models.Record) bool { return false }, nil
	}

	// A fixed domain clamps like any other: a point outside the chosen
	// range leaves lo > hi and nothing passes.
	lo, hi := domain.Min, domain.Max
	if spec.Min != nil && *spec.Min > lo {
		lo = *spec.Min
	}
	if spec.Max != nil && *spec.Max < hi {
		hi = *spec.Max
	}

	column := spec.Column
	return func(r models.Record) bool {
		f, ok := r.Value(column).Float()
		return ok && f >= lo && f <= hi
	}, nil
}

// FilterPrompt is the label shown on a column's filter widget. Text
// filters say "Substring" because patterns are matched literally.
func FilterPrompt(col models.Column) string {
	if col.Type == models.ColumnNumeric {
		return "Values for " + col.Name
	}
	return "Substring in " + col.Name
}

// textPredicate matches the upper-cased cell text against the upper-cased
// pattern as a plain substring. Patterns are never interpreted as regular
// expressions.
func textPredicate(column, pattern string) Predicate {
	if pattern == "" {
		return nil
	}
	upper := cases.Upper(language.Und)
	needle := upper.String(pattern)
	return func(r models.Record) bool {
		v := r.Value(column)
		if v.IsNull() {
			return false
		}
		return strings.Contains(upper.String(v.String()), needle)
	}
}
