// Package analytics computes class-level statistics from collections of
// graded submissions. Every function here is a pure computation over the
// input it is handed: no I/O, no caching, no shared state, so concurrent
// calls with different snapshots never interfere.
package analytics

import (
	"math"
	"sort"

	"github.com/pavelanni/gradeboard/internal/model"
)

// DefaultPassThreshold is the passing percentage used when the caller does
// not supply one.
const DefaultPassThreshold = 60.0

// StudentScore is one student's score on a single submission.
type StudentScore struct {
	StudentName string  `json:"studentName"`
	TestName    string  `json:"testName,omitempty"`
	Score       int     `json:"score"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
}

// Overall holds whole-class summary statistics. Percentages are 0-100.
type Overall struct {
	Average       float64 `json:"average"`
	Median        float64 `json:"median"`
	Highest       float64 `json:"highest"`
	Lowest        float64 `json:"lowest"`
	PassRate      float64 `json:"passRate"`
	PerfectScores int     `json:"perfectScores"`
	StdDev        float64 `json:"stdDev"`
	TotalStudents int     `json:"totalStudents"`
}

// GradeBucket is one letter-grade band of the score distribution.
type GradeBucket struct {
	Grade string `json:"grade"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WrongAnswer is one incorrect response to a question.
type WrongAnswer struct {
	Answer      string `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
}

// AnswerCount is a wrong-answer bucket with its frequency.
type AnswerCount struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// QuestionStats aggregates one question across all students.
type QuestionStats struct {
	QuestionNumber   model.QuestionID `json:"questionNumber"`
	Text             string           `json:"text"`
	CorrectAnswer    string           `json:"correctAnswer"`
	CorrectCount     int              `json:"correctCount"`
	TotalCount       int              `json:"totalCount"`
	MissedCount      int              `json:"missedCount"`
	SuccessRate      float64          `json:"successRate"`
	IncorrectAnswers []WrongAnswer    `json:"incorrectAnswers,omitempty"`
}

// CommonMistake is a frequently missed question with its most common wrong
// answers.
type CommonMistake struct {
	QuestionStats
	CommonWrongAnswers []AnswerCount `json:"commonWrongAnswers"`
}

// Snapshot is the full class analytics picture for one result collection.
// It is derived data with the lifetime of a single request or export.
type Snapshot struct {
	StudentScores    []StudentScore  `json:"studentScores"`
	Overall          Overall         `json:"overall"`
	Distribution     []GradeBucket   `json:"distribution"`
	QuestionAnalysis []QuestionStats `json:"questionAnalysis"`
	CommonMistakes   []CommonMistake `json:"commonMistakes"`
}

// noAnswerLabel is the bucket that empty student answers collapse into.
const noAnswerLabel = "No answer"

// ScoreResult computes one submission's score. A malformed or empty
// question set scores 0 out of 0, never an error.
func ScoreResult(r model.GradingResult) StudentScore {
	s := StudentScore{StudentName: r.StudentName, TestName: r.TestName}
	if !r.Verification.Valid {
		return s
	}
	for _, q := range r.Verification.Questions {
		s.Total++
		if q.Correct {
			s.Score++
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.Score) / float64(s.Total) * 100
	}
	return s
}

// ScoreResults computes per-student scores for a whole collection.
func ScoreResults(results []model.GradingResult) []StudentScore {
	scores := make([]StudentScore, len(results))
	for i, r := range results {
		scores[i] = ScoreResult(r)
	}
	return scores
}

// LetterGrade maps a percentage to the fixed A-F scheme (boundaries at
// 90/80/70/60, lower bound inclusive).
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// Analyze builds a class analytics snapshot. passThreshold <= 0 falls back
// to DefaultPassThreshold. An empty input collection yields nil: callers
// must branch on it before rendering, a class with no graded work is a
// normal state, not an error.
func Analyze(results []model.GradingResult, passThreshold float64) *Snapshot {
	if len(results) == 0 {
		return nil
	}
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}

	scores := ScoreResults(results)
	percentages := make([]float64, len(scores))
	for i, s := range scores {
		percentages[i] = s.Percentage
	}

	questions := analyzeQuestions(results)
	return &Snapshot{
		StudentScores:    scores,
		Overall:          summarize(percentages, passThreshold),
		Distribution:     distribute(percentages),
		QuestionAnalysis: questions,
		CommonMistakes:   commonMistakes(questions),
	}
}

// summarize computes overall statistics for a non-empty percentage slice.
func summarize(percentages []float64, passThreshold float64) Overall {
	n := len(percentages)
	o := Overall{TotalStudents: n, Highest: percentages[0], Lowest: percentages[0]}

	var sum float64
	passed := 0
	for _, p := range percentages {
		sum += p
		if p > o.Highest {
			o.Highest = p
		}
		if p < o.Lowest {
			o.Lowest = p
		}
		if p >= passThreshold {
			passed++
		}
		if p == 100 {
			o.PerfectScores++
		}
	}
	o.Average = sum / float64(n)
	o.PassRate = float64(passed) / float64(n) * 100

	sorted := append([]float64(nil), percentages...)
	sort.Float64s(sorted)
	if n%2 == 0 {
		o.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		o.Median = sorted[n/2]
	}

	// Population standard deviation (denominator N, not N-1).
	var sqSum float64
	for _, p := range percentages {
		d := p - o.Average
		sqSum += d * d
	}
	o.StdDev = math.Sqrt(sqSum / float64(n))

	return o
}

// distribute counts each student into exactly one letter-grade bucket.
func distribute(percentages []float64) []GradeBucket {
	buckets := []GradeBucket{
		{Grade: "A", Label: "A (90-100%)"},
		{Grade: "B", Label: "B (80-89%)"},
		{Grade: "C", Label: "C (70-79%)"},
		{Grade: "D", Label: "D (60-69%)"},
		{Grade: "F", Label: "F (0-59%)"},
	}
	index := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "F": 4}
	for _, p := range percentages {
		buckets[index[LetterGrade(p)]].Count++
	}
	return buckets
}

// analyzeQuestions groups every question result across all students by
// question number and computes per-question success rates, sorted ascending
// so the most-missed questions surface first.
func analyzeQuestions(results []model.GradingResult) []QuestionStats {
	statsByNum := make(map[model.QuestionID]*QuestionStats)
	var order []model.QuestionID

	for _, r := range results {
		if !r.Verification.Valid {
			continue
		}
		for _, q := range r.Verification.Questions {
			st, ok := statsByNum[q.QuestionNumber]
			if !ok {
				st = &QuestionStats{
					QuestionNumber: q.QuestionNumber,
					Text:           q.Text,
					CorrectAnswer:  q.CorrectAnswer,
				}
				statsByNum[q.QuestionNumber] = st
				order = append(order, q.QuestionNumber)
			}
			st.TotalCount++
			if q.Correct {
				st.CorrectCount++
			} else {
				st.IncorrectAnswers = append(st.IncorrectAnswers, WrongAnswer{
					Answer:      q.StudentAnswer,
					Explanation: q.Explanation,
				})
			}
		}
	}

	stats := make([]QuestionStats, 0, len(order))
	for _, num := range order {
		st := statsByNum[num]
		if st.TotalCount > 0 {
			st.SuccessRate = float64(st.CorrectCount) / float64(st.TotalCount) * 100
		}
		st.MissedCount = st.TotalCount - st.CorrectCount
		stats = append(stats, *st)
	}

	// Ascending: hardest questions first. Stable so first-seen order breaks
	// ties deterministically.
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].SuccessRate < stats[j].SuccessRate
	})
	return stats
}

// commonMistakes takes the three most-missed questions (those with at least
// one miss) and buckets their wrong answers, keeping the top two buckets
// per question.
func commonMistakes(analysis []QuestionStats) []CommonMistake {
	var mistakes []CommonMistake
	for _, q := range analysis {
		if q.MissedCount == 0 {
			continue
		}
		if len(mistakes) == 3 {
			break
		}

		counts := make(map[string]int)
		var seen []string
		for _, wa := range q.IncorrectAnswers {
			ans := wa.Answer
			if ans == "" {
				ans = noAnswerLabel
			}
			if counts[ans] == 0 {
				seen = append(seen, ans)
			}
			counts[ans]++
		}

		sort.SliceStable(seen, func(i, j int) bool {
			return counts[seen[i]] > counts[seen[j]]
		})
		if len(seen) > 2 {
			seen = seen[:2]
		}

		top := make([]AnswerCount, len(seen))
		for i, ans := range seen {
			top[i] = AnswerCount{Answer: ans, Count: counts[ans]}
		}
		mistakes = append(mistakes, CommonMistake{QuestionStats: q, CommonWrongAnswers: top})
	}
	return mistakes
}
