// ABOUTME: Pipeline stage metadata for opportunities
// ABOUTME: Stage ordering, labels, kanban colors, and default win probabilities
package models

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageLead, StageProspect, StageQualified, StageProposal, StageNegotiation, StageClosed, StageLost}
}

// Palette shared by the terminal views.
const (
	ColorPrimary   = "#3366FF"
	ColorSecondary = "#FF9500"
	ColorSuccess   = "#00C48C"
	ColorWarning   = "#FFCC00"
	ColorDanger    = "#FF3B30"
	ColorGrey      = "#8F8F8F"
	ColorLead      = "#9747FF"
)

var stageColors = map[Stage]string{
	StageLead:        ColorLead,
	StageProspect:    ColorPrimary,
	StageQualified:   ColorSuccess,
	StageProposal:    ColorWarning,
	StageNegotiation: ColorSecondary,
	StageClosed:      ColorSuccess,
	StageLost:        ColorDanger,
}

var stageLabels = map[Stage]string{
	StageLead:        "Lead",
	StageProspect:    "Prospect",
	StageQualified:   "Qualified",
	StageProposal:    "Proposal",
	StageNegotiation: "Negotiation",
	StageClosed:      "Closed Won",
	StageLost:        "Closed Lost",
}

var stageProbabilities = map[Stage]int{
	StageLead:        10,
	StageProspect:    25,
	StageQualified:   50,
	StageProposal:    60,
	StageNegotiation: 80,
	StageClosed:      100,
	StageLost:        0,
}

// Label returns the display name of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Color returns the kanban color of the stage, grey when unknown.
func (s Stage) Color() string {
	if c, ok := stageColors[s]; ok {
		return c
	}
	return ColorGrey
}

// Index returns the position of the stage in the pipeline, -1 when unknown.
func (s Stage) Index() int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// DefaultProbability is the win probability suggested when a deal enters the stage.
// Stage changes never apply it implicitly.
func DefaultProbability(s Stage) int {
	return stageProbabilities[s]
}

// ProbabilityColor maps a win percentage onto the palette.
func ProbabilityColor(p int) string {
	switch {
	case p >= 75:
		return ColorSuccess
	case p >= 50:
		return ColorWarning
	case p >= 25:
		return ColorSecondary
	default:
		return ColorDanger
	}
}
