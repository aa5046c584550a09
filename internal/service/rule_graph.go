package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pharmadb-backend/internal/models"
)

// PhysicsNodeThreshold is the node count from which layout physics is
// switched off. Below it, bidirectional edge pairs render as two curves;
// from it on they may overlap, which is accepted.
const PhysicsNodeThreshold = 8

var (
	ErrUnknownLabel = errors.New("unknown edge label attribute")
	ErrRuleColumns  = errors.New("rules table is missing a column")
)

// EdgeLabelChoices are the selectable edge label attributes in menu order
var EdgeLabelChoices = []string{
	models.MetricLift,
	models.MetricCoverage,
	models.MetricConfidence,
	models.MetricSupport,
}

// rawRuleColumns are the source columns kept from the rules table
var rawRuleColumns = []string{"LHS", "RHS", "support", "confidence", "coverage", "lift", "count"}

// GraphNode is one excipient
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphEdge is one rule. Key tells parallel edges between the same pair
// apart, counting from 0.
type GraphEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Key        int     `json:"key"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Coverage   float64 `json:"coverage"`
	Lift       float64 `json:"lift"`
	Count      int     `json:"count"`
	Label      string  `json:"label"`
}

// RenderOptions are handed to the visualiser untouched
type RenderOptions struct {
	Directed       bool    `json:"directed"`
	Height         string  `json:"height"`
	Width          string  `json:"width"`
	SpringLength   int     `json:"spring_length"`
	HighlightColor string  `json:"highlight_color"`
	ArrowScale     float64 `json:"arrow_scale"`
}

var defaultRenderOptions = RenderOptions{
	Directed:       true,
	Height:         "600px",
	Width:          "800px",
	SpringLength:   200,
	HighlightColor: "red",
	ArrowScale:     0.1,
}

// RuleGraph is the directed multigraph compiled from a set of rules
type RuleGraph struct {
	Nodes          []GraphNode   `json:"nodes"`
	Edges          []GraphEdge   `json:"edges"`
	LabelAttribute string        `json:"label_attribute"`
	PhysicsEnabled bool          `json:"physics_enabled"`
	Options        RenderOptions `json:"options"`
	Summary        string        `json:"summary"`
}

// RuleGraphCompiler maps filtered rules to a labelled graph
type RuleGraphCompiler struct{}

func NewRuleGraphCompiler() *RuleGraphCompiler {
	return &RuleGraphCompiler{}
}

// NormalizeRules keeps the rule columns of the raw table, strips the set
// braces around LHS/RHS and renames them antecedent/consequent.
func (c *RuleGraphCompiler) NormalizeRules(raw *models.Dataset) (*models.Dataset, error) {
	projected, err := raw.Select(rawRuleColumns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleColumns, err)
	}

	cols := projected.Schema().Columns()
	cols[0] = models.Column{Name: "antecedent", Type: models.ColumnText}
	cols[1] = models.Column{Name: "consequent", Type: models.ColumnText}
	schema, err := models.NewSchema(cols)
	if err != nil {
		return nil, err
	}

	rows := make([][]models.Value, 0, projected.Len())
	for _, rec := range projected.Records() {
		values := rec.Values()
		values[0] = models.TextValue(stripItemSet(values[0].String()))
		values[1] = models.TextValue(stripItemSet(values[1].String()))
		rows = append(rows, values)
	}
	return models.NewDataset(models.TableAssociationRules, schema, rows)
}

func stripItemSet(s string) string {
	return strings.TrimSpace(strings.Trim(s, "{}"))
}

// RulesFromDataset reads typed rules from a normalised rules dataset.
// Missing metrics read as zero.
func (c *RuleGraphCompiler) RulesFromDataset(ds *models.Dataset) ([]models.Rule, error) {
	for _, col := range []string{"antecedent", "consequent"} {
		if _, _, ok := ds.Schema().Lookup(col); !ok {
			return nil, fmt.Errorf("%w: %s", ErrRuleColumns, col)
		}
	}

	rules := make([]models.Rule, 0, ds.Len())
	for _, rec := range ds.Records() {
		num := func(col string) float64 {
			f, _ := rec.Value(col).Float()
			return f
		}
		rules = append(rules, models.Rule{
			Antecedent: rec.Value("antecedent").String(),
			Consequent: rec.Value("consequent").String(),
			Support:    num(models.MetricSupport),
			Confidence: num(models.MetricConfidence),
			Coverage:   num(models.MetricCoverage),
			Lift:       num(models.MetricLift),
			Count:      int(num("count")),
		})
	}
	return rules, nil
}

// Compile builds one node per distinct item, in order of first appearance,
// and one edge per rule. Parallel edges are kept.
func (c *RuleGraphCompiler) Compile(rules []models.Rule, label string) (*RuleGraph, error) {
	if !validLabel(label) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}

	graph := &RuleGraph{
		Nodes:          []GraphNode{},
		Edges:          []GraphEdge{},
		LabelAttribute: label,
		Options:        defaultRenderOptions,
	}

	seen := make(map[string]bool)
	addNode := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		graph.Nodes = append(graph.Nodes, GraphNode{ID: name, Label: name})
	}

	keys := make(map[[2]string]int)
	for _, rule := range rules {
		addNode(rule.Antecedent)
		addNode(rule.Consequent)

		pair := [2]string{rule.Antecedent, rule.Consequent}
		graph.Edges = append(graph.Edges, GraphEdge{
			Source:     rule.Antecedent,
			Target:     rule.Consequent,
			Key:        keys[pair],
			Support:    rule.Support,
			Confidence: rule.Confidence,
			Coverage:   rule.Coverage,
			Lift:       rule.Lift,
			Count:      rule.Count,
		})
		keys[pair]++
	}

	labelEdges(graph.Edges, label)
	graph.PhysicsEnabled = len(graph.Nodes) < PhysicsNodeThreshold
	graph.Summary = fmt.Sprintf("Currently displaying %d rules with %d excipients.", len(graph.Edges), len(graph.Nodes))
	return graph, nil
}

// CompileDataset reads rules from ds and compiles them
func (c *RuleGraphCompiler) CompileDataset(ds *models.Dataset, label string) (*RuleGraph, error) {
	rules, err := c.RulesFromDataset(ds)
	if err != nil {
		return nil, err
	}
	return c.Compile(rules, label)
}

// Relabel returns a copy of g with every edge labelled by another metric.
// Nodes, edges and metrics are unchanged.
func (c *RuleGraphCompiler) Relabel(g *RuleGraph, label string) (*RuleGraph, error) {
	if !validLabel(label) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	out := *g
	out.Nodes = append([]GraphNode(nil), g.Nodes...)
	out.Edges = append([]GraphEdge(nil), g.Edges...)
	out.LabelAttribute = label
	labelEdges(out.Edges, label)
	return &out, nil
}

func validLabel(label string) bool {
	for _, l := range EdgeLabelChoices {
		if l == label {
			return true
		}
	}
	return false
}

func labelEdges(edges []GraphEdge, label string) {
	for i := range edges {
		v, _ := edges[i].Rule().Metric(label)
		edges[i].Label = FormatMetric(v)
	}
}

// Rule is the association rule an edge was drawn from
func (e GraphEdge) Rule() models.Rule {
	return models.Rule{
		Antecedent: e.Source,
		Consequent: e.Target,
		Support:    e.Support,
		Confidence: e.Confidence,
		Coverage:   e.Coverage,
		Lift:       e.Lift,
		Count:      e.Count,
	}
}

// FormatMetric writes a metric the way it is shown on an edge: shortest
// round-trip decimal, always with a fractional part ("2.0", "0.125").
func FormatMetric(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
