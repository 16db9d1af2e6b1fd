package repair

// MilestoneStep is one named stage of the human-facing progress scale.
type MilestoneStep struct {
	Name    string
	Percent int
}

// MilestoneSteps is the static ordered milestone list. The milestone label
// for a job is the last step whose percent is covered by the job's
// progress, so an explicit progress override can land a job on a step
// (for example "final testing") that no formal status maps to directly.
var MilestoneSteps = []MilestoneStep{
	{Name: "assessment", Percent: 5},
	{Name: "diagnosis", Percent: 20},
	{Name: "parts ordering", Percent: 35},
	{Name: "repair work", Percent: 55},
	{Name: "quality check", Percent: 70},
	{Name: "final testing", Percent: 85},
	{Name: "ready for pickup", Percent: 95},
}

var statusProgress = map[Status]int{
	StatusReceived:       5,
	StatusDiagnosed:      20,
	StatusPartsOrdered:   35,
	StatusInRepair:       55,
	StatusQualityCheck:   70,
	StatusReadyForPickup: 95,
	StatusCompleted:      100,
}

// ProgressForStatus returns the default progress percentage for a status.
// Cancelled has no entry: a cancelled job keeps its last computed progress.
func ProgressForStatus(status Status) (int, bool) {
	p, ok := statusProgress[status]
	return p, ok
}

// MilestoneForProgress maps a progress percentage onto the milestone scale.
func MilestoneForProgress(progress int) string {
	label := MilestoneSteps[0].Name
	for _, step := range MilestoneSteps {
		if progress >= step.Percent {
			label = step.Name
		}
	}
	return label
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
