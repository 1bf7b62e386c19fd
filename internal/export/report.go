package export

import (
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/pavelanni/gradeboard/internal/analytics"
)

var reportTmpl = template.Must(template.New("report").Parse(reportHTML))

type reportRow struct {
	Rank       int
	Name       string
	Score      int
	Total      int
	Percentage float64
	Grade      string
}

type reportBucket struct {
	Grade      string
	Count      int
	Percentage float64
}

type reportQuestion struct {
	Number      string
	Text        string
	SuccessRate float64
	Correct     int
	Total       int
}

type reportMistake struct {
	Number        string
	Text          string
	MissedCount   int
	CorrectAnswer string
}

type reportData struct {
	ClassName    string
	Date         string
	Overall      analytics.Overall
	Distribution []reportBucket
	Students     []reportRow
	Questions    []reportQuestion
	Mistakes     []reportMistake
}

// WriteHTMLReport renders a printable grade report for a class snapshot.
func WriteHTMLReport(w io.Writer, snap *analytics.Snapshot, className string, now time.Time) error {
	if snap == nil {
		return ErrNoResults
	}
	if className == "" {
		className = "Math Class"
	}

	data := reportData{
		ClassName: className,
		Date:      now.Format("January 2, 2006"),
		Overall:   snap.Overall,
	}

	total := snap.Overall.TotalStudents
	for _, b := range snap.Distribution {
		pct := 0.0
		if total > 0 {
			pct = float64(b.Count) / float64(total) * 100
		}
		data.Distribution = append(data.Distribution, reportBucket{Grade: b.Grade, Count: b.Count, Percentage: pct})
	}

	students := append([]analytics.StudentScore(nil), snap.StudentScores...)
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].Percentage > students[j].Percentage
	})
	for i, s := range students {
		data.Students = append(data.Students, reportRow{
			Rank:       i + 1,
			Name:       s.StudentName,
			Score:      s.Score,
			Total:      s.Total,
			Percentage: s.Percentage,
			Grade:      analytics.LetterGrade(s.Percentage),
		})
	}

	for _, q := range snap.QuestionAnalysis {
		data.Questions = append(data.Questions, reportQuestion{
			Number:      string(q.QuestionNumber),
			Text:        truncate(q.Text, 50),
			SuccessRate: q.SuccessRate,
			Correct:     q.CorrectCount,
			Total:       q.TotalCount,
		})
	}

	for _, m := range snap.CommonMistakes {
		data.Mistakes = append(data.Mistakes, reportMistake{
			Number:        string(m.QuestionNumber),
			Text:          m.Text,
			MissedCount:   m.MissedCount,
			CorrectAnswer: m.CorrectAnswer,
		})
	}

	return reportTmpl.Execute(w, data)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Grade Report - {{.ClassName}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 40px; }
    h1 { color: #333; border-bottom: 2px solid #333; padding-bottom: 10px; }
    h2 { color: #555; margin-top: 30px; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; }
    th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
    th { background-color: #f4f4f4; }
    .stat-box { display: inline-block; margin: 10px; padding: 15px; background: #f9f9f9; border-radius: 8px; }
    .stat-value { font-size: 24px; font-weight: bold; }
    .stat-label { font-size: 12px; color: #666; }
    .grade-A { color: #22c55e; }
    .grade-B { color: #3b82f6; }
    .grade-C { color: #eab308; }
    .grade-D { color: #f97316; }
    .grade-F { color: #ef4444; }
    .mistake { margin: 10px 0; padding: 10px; background: #fef2f2; border-left: 4px solid #ef4444; }
    .page-break { page-break-before: always; }
    @media print { body { margin: 20px; } }
  </style>
</head>
<body>
  <h1>Grade Report: {{.ClassName}}</h1>
  <p>Generated on {{.Date}}</p>

  <h2>Class Summary</h2>
  <div class="stat-box">
    <div class="stat-value">{{printf "%.1f" .Overall.Average}}%</div>
    <div class="stat-label">Class Average</div>
  </div>
  <div class="stat-box">
    <div class="stat-value">{{printf "%.0f" .Overall.PassRate}}%</div>
    <div class="stat-label">Pass Rate</div>
  </div>
  <div class="stat-box">
    <div class="stat-value">{{.Overall.TotalStudents}}</div>
    <div class="stat-label">Total Students</div>
  </div>
  <div class="stat-box">
    <div class="stat-value">{{.Overall.PerfectScores}}</div>
    <div class="stat-label">Perfect Scores</div>
  </div>

  <h2>Grade Distribution</h2>
  <table>
    <tr><th>Grade</th><th>Count</th><th>Percentage</th></tr>
    {{range .Distribution}}<tr><td>{{.Grade}}</td><td>{{.Count}}</td><td>{{printf "%.1f" .Percentage}}%</td></tr>
    {{end}}
  </table>

  <h2>Student Results</h2>
  <table>
    <tr><th>Rank</th><th>Student</th><th>Score</th><th>Percentage</th><th>Grade</th></tr>
    {{range .Students}}<tr><td>{{.Rank}}</td><td>{{.Name}}</td><td>{{.Score}}/{{.Total}}</td><td>{{printf "%.0f" .Percentage}}%</td><td class="grade-{{.Grade}}">{{.Grade}}</td></tr>
    {{end}}
  </table>

  <div class="page-break"></div>

  <h2>Question Analysis</h2>
  <table>
    <tr><th>Question</th><th>Success Rate</th><th>Correct</th><th>Total</th></tr>
    {{range .Questions}}<tr><td>Q{{.Number}}: {{.Text}}</td><td>{{printf "%.0f" .SuccessRate}}%</td><td>{{.Correct}}</td><td>{{.Total}}</td></tr>
    {{end}}
  </table>

  <h2>Areas Needing Review</h2>
  {{range .Mistakes}}<div class="mistake">
    <strong>Question {{.Number}}</strong> ({{.MissedCount}} students missed)<br>
    {{.Text}}<br>
    <span style="color: green;">Correct: {{.CorrectAnswer}}</span>
  </div>
  {{end}}
</body>
</html>
`
