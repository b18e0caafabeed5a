package services

import "github.com/pandeptwidyaop/release-radar/internal/models"

// Gap is the difference between the installed build and the CI history.
type Gap struct {
	LatestBuild *int
	Missing     []models.Pipeline
}

// MissingIDs returns the ids of the missing pipelines in ascending order.
func (g Gap) MissingIDs() []int {
	ids := make([]int, 0, len(g.Missing))
	for _, p := range g.Missing {
		ids = append(ids, p.ID)
	}
	return ids
}

// AnalyzeGap compares the installed build against successful pipelines sorted
// ascending by id. Every pipeline newer than current is missing; nothing is
// missing when current is unknown. The latest build is the last pipeline.
func AnalyzeGap(pipelines []models.Pipeline, current *int) Gap {
	var gap Gap
	if len(pipelines) == 0 {
		return gap
	}

	latest := pipelines[len(pipelines)-1].ID
	gap.LatestBuild = &latest

	if current == nil {
		return gap
	}
	for _, p := range pipelines {
		if p.ID > *current {
			gap.Missing = append(gap.Missing, p)
		}
	}
	return gap
}

// IsUpToDate reports whether the installed build is at least the latest one.
// Unknown builds are never up to date.
func IsUpToDate(current, latest *int) bool {
	return current != nil && latest != nil && *current >= *latest
}
