package analytics

import (
	"sort"

	"github.com/pavelanni/gradeboard/internal/model"
)

// trendWindow is how many most-recent historical scores the trend check
// considers.
const trendWindow = 3

// minTrendChange is the total percentage-point movement a window must show
// before it counts as a trend.
const minTrendChange = 10.0

// AtRiskStudent is a student whose current score falls below the passing
// threshold.
type AtRiskStudent struct {
	StudentName string  `json:"studentName"`
	TestName    string  `json:"testName,omitempty"`
	Percentage  float64 `json:"percentage"`
	Severity    string  `json:"severity"` // "high" or "medium"
}

// TrendStudent is a student whose recent scores move consistently in one
// direction.
type TrendStudent struct {
	StudentName   string  `json:"studentName"`
	PreviousScore float64 `json:"previousScore"`
	CurrentScore  float64 `json:"currentScore"`
	ChangeAmount  float64 `json:"changeAmount"`
}

// Alerts holds the three independent alert lists. A student may appear in
// more than one list; no deduplication is performed.
type Alerts struct {
	AtRisk    []AtRiskStudent `json:"atRisk"`
	Declining []TrendStudent  `json:"declining"`
	Improving []TrendStudent  `json:"improving"`
}

// DetectAlerts classifies each current result against the passing threshold
// and, where at least two historical submissions exist for the same student
// name, against the recent score trend. History must be ordered oldest to
// newest (the store returns it that way). threshold <= 0 falls back to
// DefaultPassThreshold.
//
// Students are matched by exact name-string equality. There is no stable
// roster id in the common path; fuzzy matching is deliberately not
// attempted.
func DetectAlerts(current []model.GradingResult, history []model.GradingResult, threshold float64) Alerts {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}

	var alerts Alerts
	for _, r := range current {
		score := ScoreResult(r)

		if score.Percentage < threshold {
			severity := "medium"
			if score.Percentage < threshold-20 {
				severity = "high"
			}
			alerts.AtRisk = append(alerts.AtRisk, AtRiskStudent{
				StudentName: r.StudentName,
				TestName:    r.TestName,
				Percentage:  score.Percentage,
				Severity:    severity,
			})
		}

		recent := recentPercentages(history, r.StudentName)
		if len(recent) < 2 {
			continue
		}

		first, last := recent[0], recent[len(recent)-1]
		if monotone(recent, func(prev, cur float64) bool { return cur < prev }) && first-last > minTrendChange {
			alerts.Declining = append(alerts.Declining, TrendStudent{
				StudentName:   r.StudentName,
				PreviousScore: first,
				CurrentScore:  score.Percentage,
				ChangeAmount:  first - last,
			})
		}
		if monotone(recent, func(prev, cur float64) bool { return cur > prev }) && last-first > minTrendChange {
			alerts.Improving = append(alerts.Improving, TrendStudent{
				StudentName:   r.StudentName,
				PreviousScore: first,
				CurrentScore:  score.Percentage,
				ChangeAmount:  last - first,
			})
		}
	}

	sort.SliceStable(alerts.AtRisk, func(i, j int) bool {
		return alerts.AtRisk[i].Percentage < alerts.AtRisk[j].Percentage
	})
	sort.SliceStable(alerts.Declining, func(i, j int) bool {
		return alerts.Declining[i].ChangeAmount > alerts.Declining[j].ChangeAmount
	})
	sort.SliceStable(alerts.Improving, func(i, j int) bool {
		return alerts.Improving[i].ChangeAmount > alerts.Improving[j].ChangeAmount
	})
	return alerts
}

// recentPercentages returns the student's percentages for the last
// trendWindow historical submissions, oldest first.
func recentPercentages(history []model.GradingResult, studentName string) []float64 {
	var matched []model.GradingResult
	for _, h := range history {
		if h.StudentName == studentName {
			matched = append(matched, h)
		}
	}
	if len(matched) < 2 {
		return nil
	}
	if len(matched) > trendWindow {
		matched = matched[len(matched)-trendWindow:]
	}
	percentages := make([]float64, len(matched))
	for i, h := range matched {
		percentages[i] = ScoreResult(h).Percentage
	}
	return percentages
}

// monotone reports whether every consecutive pair satisfies cmp.
func monotone(values []float64, cmp func(prev, cur float64) bool) bool {
	for i := 1; i < len(values); i++ {
		if !cmp(values[i-1], values[i]) {
			return false
		}
	}
	return true
}
