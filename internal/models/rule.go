package models

// Rule metric names, also the selectable edge label attributes
const (
	MetricSupport    = "support"
	MetricConfidence = "confidence"
	MetricCoverage   = "coverage"
	MetricLift       = "lift"
)

// Rule is one association rule with a single antecedent and consequent
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Coverage   float64 `json:"coverage"`
	Lift       float64 `json:"lift"`
	Count      int     `json:"count"`
}

// Metric returns one of the four quality metrics by name
func (r Rule) Metric(name string) (float64, bool) {
	switch name {
	case MetricSupport:
		return r.Support, true
	case MetricConfidence:
		return r.Confidence, true
	case MetricCoverage:
		return r.Coverage, true
	case MetricLift:
		return r.Lift, true
	}
	return 0, false
}
