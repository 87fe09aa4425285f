package mixing

import (
	"slices"
	"strconv"
	"strings"
)

// DefaultDropoutTransition is the amix dropout transition in seconds.
const DefaultDropoutTransition = 0.5

// Stream labels used in the composed graph.
const (
	LabelOriginal    = "a_orig_vol"
	LabelTranslation = "a_trans_vol"
	LabelMixed       = "a_mixed"
)

// Engine input indices. Input 0 is always the video.
const (
	InputOriginal    = 1
	InputTranslation = 2
)

// DurationPolicy selects how the mix stage decides its output length.
type DurationPolicy string

// amix duration modes. Compose always uses DurationLongest.
const (
	DurationLongest  DurationPolicy = "longest"
	DurationShortest DurationPolicy = "shortest"
	DurationFirst    DurationPolicy = "first"
)

// Binding ties an engine input index to its role in the graph.
type Binding struct {
	Input int
	Role  Role
	Label string
}

// Graph is the composed filter description handed to the transcode executor.
type Graph struct {
	Expression        string
	Gains             Gains
	Bindings          []Binding
	OutputLabel       string
	Duration          DurationPolicy
	DropoutTransition float64
}

// Compose builds the two gain stages and the mix stage. A non-positive
// dropout uses DefaultDropoutTransition.
func Compose(g Gains, dropout float64) Graph {
	if dropout <= 0 {
		dropout = DefaultDropoutTransition
	}
	bindings := []Binding{
		{Input: InputOriginal, Role: RoleOriginal, Label: LabelOriginal},
		{Input: InputTranslation, Role: RoleTranslation, Label: LabelTranslation},
	}
	policy := DurationLongest
	stages := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		stages = append(stages, volumeStage(b, g.For(b.Role)))
	}
	stages = append(stages,
		"["+LabelOriginal+"]["+LabelTranslation+"]amix=inputs=2:duration="+string(policy)+
			":dropout_transition="+formatNumber(dropout)+"["+LabelMixed+"]")

	return Graph{
		Expression:        strings.Join(stages, ";"),
		Gains:             g,
		Bindings:          bindings,
		OutputLabel:       LabelMixed,
		Duration:          policy,
		DropoutTransition: dropout,
	}
}

func volumeStage(b Binding, expr Expression) string {
	return "[" + strconv.Itoa(b.Input) + ":a]volume='" + expr.String() + "':eval=frame[" + b.Label + "]"
}

// OutputMap is the -map argument selecting the mixed stream.
func (g Graph) OutputMap() string {
	return "[" + g.OutputLabel + "]"
}

// DeclaredDuration returns the output duration the mix stage targets for the
// given input durations, in mix input order.
func (g Graph) DeclaredDuration(inputs ...float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	switch g.Duration {
	case DurationFirst:
		return inputs[0]
	case DurationShortest:
		return slices.Min(inputs)
	default:
		return slices.Max(inputs)
	}
}

func (g Graph) String() string { return g.Expression }
