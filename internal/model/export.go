package model

import "time"

// ResultsExport is the top-level JSON structure for graded-result export.
type ResultsExport struct {
	ClassName   string          `json:"class_name"`
	TestName    string          `json:"test_name"`
	TestVersion string          `json:"test_version,omitempty"`
	ExportedAt  time.Time       `json:"exported_at"`
	Results     []GradingResult `json:"results"`
}
