// Package scores interprets normalized cluster risk scores and loads the
// risk-score table produced upstream.
package scores

import "fmt"

// Label is the categorical band a normalized score falls into.
type Label string

const (
	LabelLow          Label = "low"
	LabelIntermediate Label = "intermediate"
	LabelHigh         Label = "high"
)

// Band thresholds. Boundary values belong to the higher band.
const (
	highThreshold         = 0.67
	intermediateThreshold = 0.34
)

// Interpreted pairs a raw normalized score with its categorical label.
// Computed once per score per cluster at prompt-build time; it is never
// persisted on its own, only embedded in the prompt and echoed into the
// output record.
type Interpreted struct {
	Raw   float64
	Label Label
}

// Interpret maps a raw normalized score to its band. The thresholds are
// fixed constants: no hysteresis, no cross-cluster normalization.
func Interpret(raw float64) Interpreted {
	switch {
	case raw >= highThreshold:
		return Interpreted{Raw: raw, Label: LabelHigh}
	case raw >= intermediateThreshold:
		return Interpreted{Raw: raw, Label: LabelIntermediate}
	default:
		return Interpreted{Raw: raw, Label: LabelLow}
	}
}

// String renders the score as embedded in labeled prompts, e.g. "0.720 (high)".
func (s Interpreted) String() string {
	return fmt.Sprintf("%.3f (%s)", s.Raw, s.Label)
}

// FormatRaw renders a bare numeric score string, e.g. "0.720", for the
// variant that leaves interpretation to the backend.
func FormatRaw(raw float64) string {
	return fmt.Sprintf("%.3f", raw)
}
