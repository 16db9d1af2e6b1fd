package repair

// QualityDecision is the quality gate's verdict on a submitted check.
type QualityDecision struct {
	Target Status
	Rework bool
}

// EvaluateQualityCheck turns a pass/fail result into the synthesized
// status transition. Only the boolean gates the decision; the score is
// retained on the event payload for audit and reporting.
func EvaluateQualityCheck(passed bool) QualityDecision {
	if passed {
		return QualityDecision{Target: StatusReadyForPickup}
	}
	return QualityDecision{Target: StatusInRepair, Rework: true}
}

// QualityResult is the latest quality outcome carried on the aggregate.
type QualityResult struct {
	Passed          bool
	Score           float64
	Issues          []string
	Recommendations []string
	Seq             uint64
}
