package analytics

import (
	"testing"

	"github.com/pavelanni/gradeboard/internal/model"
)

func history(name string, percentages ...int) []model.GradingResult {
	var h []model.GradingResult
	for _, p := range percentages {
		h = append(h, resultPct(name, p))
	}
	return h
}

func TestDetectAlertsAtRisk(t *testing.T) {
	current := []model.GradingResult{
		resultPct("Low", 35),     // high severity: below 60-20
		resultPct("Borderline", 45), // medium severity
		resultPct("Fine", 75),
	}

	alerts := DetectAlerts(current, nil, 0)
	if len(alerts.AtRisk) != 2 {
		t.Fatalf("expected 2 at-risk students, got %d", len(alerts.AtRisk))
	}
	// Sorted ascending by percentage.
	if alerts.AtRisk[0].StudentName != "Low" || alerts.AtRisk[0].Severity != "high" {
		t.Errorf("first at-risk = %+v, want Low/high", alerts.AtRisk[0])
	}
	if alerts.AtRisk[1].StudentName != "Borderline" || alerts.AtRisk[1].Severity != "medium" {
		t.Errorf("second at-risk = %+v, want Borderline/medium", alerts.AtRisk[1])
	}
}

func TestDetectAlertsTrends(t *testing.T) {
	tests := []struct {
		name      string
		history   []int
		declining bool
		improving bool
	}{
		{"improving", []int{50, 60, 70}, false, true},
		{"declining", []int{70, 60, 50}, true, false},
		{"non-monotonic", []int{50, 55, 53}, false, false},
		{"monotonic but small change", []int{50, 52, 55}, false, false},
		{"single entry", []int{50}, false, false},
		{"flat", []int{50, 50, 50}, false, false},
		{"two entries declining", []int{80, 60}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := []model.GradingResult{resultPct("Sam", 55)}
			alerts := DetectAlerts(current, history("Sam", tt.history...), 0)

			if got := len(alerts.Declining) > 0; got != tt.declining {
				t.Errorf("declining = %v, want %v", got, tt.declining)
			}
			if got := len(alerts.Improving) > 0; got != tt.improving {
				t.Errorf("improving = %v, want %v", got, tt.improving)
			}
		})
	}
}

func TestDetectAlertsTrendWindow(t *testing.T) {
	// Only the most recent three entries count: the early 90 is outside
	// the window, so the trend is 70 -> 60 -> 50, a 20-point decline.
	alerts := DetectAlerts(
		[]model.GradingResult{resultPct("Sam", 50)},
		history("Sam", 90, 70, 60, 50),
		0,
	)
	if len(alerts.Declining) != 1 {
		t.Fatalf("expected 1 declining student, got %d", len(alerts.Declining))
	}
	d := alerts.Declining[0]
	if d.PreviousScore != 70 || d.ChangeAmount != 20 {
		t.Errorf("decline = %+v, want previous 70 drop 20", d)
	}
}

func TestDetectAlertsSortsByChange(t *testing.T) {
	current := []model.GradingResult{
		resultPct("Small", 60),
		resultPct("Big", 40),
	}
	hist := append(history("Small", 75, 60), history("Big", 80, 40)...)

	alerts := DetectAlerts(current, hist, 0)
	if len(alerts.Declining) != 2 {
		t.Fatalf("expected 2 declining students, got %d", len(alerts.Declining))
	}
	if alerts.Declining[0].StudentName != "Big" {
		t.Errorf("largest drop should sort first, got %+v", alerts.Declining[0])
	}
}

func TestDetectAlertsNameMatching(t *testing.T) {
	// History under a different name contributes nothing.
	alerts := DetectAlerts(
		[]model.GradingResult{resultPct("Sam Smith", 50)},
		history("Sam", 90, 70, 50),
		0,
	)
	if len(alerts.Declining) != 0 {
		t.Errorf("mismatched names must not match: %+v", alerts.Declining)
	}
}

func TestDetectAlertsOverlap(t *testing.T) {
	// A student can be at-risk and declining at the same time.
	alerts := DetectAlerts(
		[]model.GradingResult{resultPct("Sam", 40)},
		history("Sam", 80, 60, 40),
		0,
	)
	if len(alerts.AtRisk) != 1 || len(alerts.Declining) != 1 {
		t.Errorf("expected overlap in atRisk and declining: %+v", alerts)
	}
}

func TestDetectAlertsCustomThreshold(t *testing.T) {
	alerts := DetectAlerts([]model.GradingResult{resultPct("Sam", 65)}, nil, 70)
	if len(alerts.AtRisk) != 1 {
		t.Fatalf("expected Sam at risk under threshold 70")
	}
	if alerts.AtRisk[0].Severity != "medium" {
		t.Errorf("severity = %q, want medium (65 >= 50)", alerts.AtRisk[0].Severity)
	}
}

func TestDetectAlertsMalformedCurrent(t *testing.T) {
	// A malformed submission scores 0 and is therefore at risk, but must
	// not panic or produce NaN.
	alerts := DetectAlerts([]model.GradingResult{malformedResult("Sam")}, nil, 0)
	if len(alerts.AtRisk) != 1 {
		t.Fatalf("expected malformed submission to be at risk")
	}
	if alerts.AtRisk[0].Percentage != 0 || alerts.AtRisk[0].Severity != "high" {
		t.Errorf("at-risk entry = %+v, want 0%%/high", alerts.AtRisk[0])
	}
}
