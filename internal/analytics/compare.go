package analytics

import (
	"sort"

	"github.com/pavelanni/gradeboard/internal/model"
)

// changeDeadband is the +/- percentage-point band within which a student's
// change counts as stable.
const changeDeadband = 5.0

// Change classifications for matched students.
const (
	ChangeImproved = "Improved"
	ChangeDeclined = "Declined"
	ChangeStable   = "Stable"
)

// SetStats summarizes one result collection for comparison.
type SetStats struct {
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Lowest   float64 `json:"lowest"`
	PassRate float64 `json:"passRate"`
	Count    int     `json:"count"`
}

// StudentChange is the score delta for a student present in both the
// current and the previous collection.
type StudentChange struct {
	Name     string  `json:"name"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
	Status   string  `json:"status"`
}

// Comparison holds class-level and per-student deltas between two
// assessments. Previous is nil when there is nothing to compare against;
// Current is always populated.
type Comparison struct {
	Current  SetStats        `json:"current"`
	Previous *SetStats       `json:"previous,omitempty"`
	Students []StudentChange `json:"students,omitempty"`
	Improved int             `json:"improved"`
	Stable   int             `json:"stable"`
	Declined int             `json:"declined"`
}

// Compare computes class and per-student deltas between the current and
// previous result collections. Students are matched by exact name equality;
// unmatched students on either side are excluded from the per-student rows.
// An empty previous collection yields valid current-only statistics with
// Previous nil, not an error. Empty current yields nil. threshold <= 0
// falls back to DefaultPassThreshold.
func Compare(current, previous []model.GradingResult, threshold float64) *Comparison {
	if len(current) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}

	cmp := &Comparison{Current: setStats(current, threshold)}
	if len(previous) == 0 {
		return cmp
	}
	prev := setStats(previous, threshold)
	cmp.Previous = &prev

	prevByName := make(map[string]model.GradingResult, len(previous))
	for _, p := range previous {
		if _, ok := prevByName[p.StudentName]; !ok {
			prevByName[p.StudentName] = p
		}
	}

	for _, c := range current {
		p, ok := prevByName[c.StudentName]
		if !ok {
			continue
		}
		currentPct := ScoreResult(c).Percentage
		previousPct := ScoreResult(p).Percentage
		change := currentPct - previousPct

		status := ChangeStable
		switch {
		case change > changeDeadband:
			status = ChangeImproved
			cmp.Improved++
		case change < -changeDeadband:
			status = ChangeDeclined
			cmp.Declined++
		default:
			cmp.Stable++
		}

		cmp.Students = append(cmp.Students, StudentChange{
			Name:     c.StudentName,
			Current:  currentPct,
			Previous: previousPct,
			Change:   change,
			Status:   status,
		})
	}

	// Biggest gains first.
	sort.SliceStable(cmp.Students, func(i, j int) bool {
		return cmp.Students[i].Change > cmp.Students[j].Change
	})
	return cmp
}

// setStats computes comparison-level statistics for one non-empty set.
func setStats(results []model.GradingResult, threshold float64) SetStats {
	scores := ScoreResults(results)
	st := SetStats{Count: len(scores), Highest: scores[0].Percentage, Lowest: scores[0].Percentage}

	var sum float64
	passed := 0
	for _, s := range scores {
		sum += s.Percentage
		if s.Percentage > st.Highest {
			st.Highest = s.Percentage
		}
		if s.Percentage < st.Lowest {
			st.Lowest = s.Percentage
		}
		if s.Percentage >= threshold {
			passed++
		}
	}
	st.Average = sum / float64(st.Count)
	st.PassRate = float64(passed) / float64(st.Count) * 100
	return st
}
