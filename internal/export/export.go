// Package export renders stored results and analytics snapshots as CSV,
// TSV, and printable HTML.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pavelanni/gradeboard/internal/analytics"
	"github.com/pavelanni/gradeboard/internal/model"
)

// ErrNoResults is returned when an export is requested for an empty
// collection.
var ErrNoResults = fmt.Errorf("no results to export")

// WriteGradesCSV writes the roster export: one row per student with score,
// percentage, grade, and the question numbers answered correctly and
// incorrectly.
func WriteGradesCSV(w io.Writer, results []model.GradingResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	header := []string{
		"Student Name", "Test Name", "Score", "Total Questions",
		"Percentage", "Grade", "Questions Correct", "Questions Incorrect",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		score := analytics.ScoreResult(r)
		var correct, incorrect []string
		if r.Verification.Valid {
			for _, q := range r.Verification.Questions {
				if q.Correct {
					correct = append(correct, string(q.QuestionNumber))
				} else {
					incorrect = append(incorrect, string(q.QuestionNumber))
				}
			}
		}
		row := []string{
			r.StudentName,
			r.TestName,
			fmt.Sprintf("%d", score.Score),
			fmt.Sprintf("%d", score.Total),
			fmt.Sprintf("%.1f%%", score.Percentage),
			analytics.LetterGrade(score.Percentage),
			strings.Join(correct, "; "),
			strings.Join(incorrect, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailedCSV writes one row per question per student. Submissions
// with malformed verification payloads contribute no rows.
func WriteDetailedCSV(w io.Writer, results []model.GradingResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	header := []string{
		"Student Name", "Test Name", "Question Number", "Question Text",
		"Student Answer", "Correct Answer", "Is Correct", "Explanation",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Verification.Valid {
			continue
		}
		for _, q := range r.Verification.Questions {
			isCorrect := "No"
			if q.Correct {
				isCorrect = "Yes"
			}
			row := []string{
				r.StudentName, r.TestName, string(q.QuestionNumber), q.Text,
				q.StudentAnswer, q.CorrectAnswer, isCorrect, q.Explanation,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the class analytics summary: overall statistics,
// grade distribution, and per-question analysis in one sheet.
func WriteSummaryCSV(w io.Writer, snap *analytics.Snapshot) error {
	if snap == nil {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	total := snap.Overall.TotalStudents
	records := [][]string{
		{"Class Analytics Summary"},
		{},
		{"Overall Statistics"},
		{"Class Average", fmt.Sprintf("%.1f%%", snap.Overall.Average)},
		{"Median Score", fmt.Sprintf("%.1f%%", snap.Overall.Median)},
		{"Pass Rate", fmt.Sprintf("%.1f%%", snap.Overall.PassRate)},
		{"Highest Score", fmt.Sprintf("%.0f%%", snap.Overall.Highest)},
		{"Lowest Score", fmt.Sprintf("%.0f%%", snap.Overall.Lowest)},
		{"Standard Deviation", fmt.Sprintf("%.2f", snap.Overall.StdDev)},
		{"Total Students", fmt.Sprintf("%d", total)},
		{"Perfect Scores", fmt.Sprintf("%d", snap.Overall.PerfectScores)},
		{},
		{"Grade Distribution"},
	}
	for _, b := range snap.Distribution {
		pct := 0.0
		if total > 0 {
			pct = float64(b.Count) / float64(total) * 100
		}
		records = append(records, []string{b.Grade, fmt.Sprintf("%d", b.Count), fmt.Sprintf("%.1f%%", pct)})
	}
	records = append(records,
		[]string{},
		[]string{"Question Analysis"},
		[]string{"Question Number", "Success Rate", "Correct", "Total"},
	)
	for _, q := range snap.QuestionAnalysis {
		records = append(records, []string{
			string(q.QuestionNumber),
			fmt.Sprintf("%.1f%%", q.SuccessRate),
			fmt.Sprintf("%d", q.CorrectCount),
			fmt.Sprintf("%d", q.TotalCount),
		})
	}

	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSheetsTSV writes a tab-separated roster suitable for pasting into a
// spreadsheet.
func WriteSheetsTSV(w io.Writer, results []model.GradingResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"Student Name", "Score", "Percentage", "Grade"}); err != nil {
		return err
	}
	for _, r := range results {
		score := analytics.ScoreResult(r)
		row := []string{
			r.StudentName,
			fmt.Sprintf("%d/%d", score.Score, score.Total),
			fmt.Sprintf("%.1f%%", score.Percentage),
			analytics.LetterGrade(score.Percentage),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
