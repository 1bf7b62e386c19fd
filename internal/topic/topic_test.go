package topic

import (
	"testing"

	"github.com/pavelanni/gradeboard/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", GeneralID},
		{"no keyword match", "qqq zzz", GeneralID},
		{"addition by word", "Add 2 and 3", "addition"},
		{"addition symbol ties ahead of algebra", "7 + 5 = ?", "addition"},
		{"subtraction", "What is the difference between 9 and 4?", "subtraction"},
		{"multiplication", "Multiply 6 times 7", "multiplication"},
		{"fractions over division", "What is 1/2 + 1/4?", "fractions"},
		{"percentages", "What percent of 50 is 10?", "percentages"},
		{"geometry", "Find the area and perimeter of the rectangle", "geometry"},
		{"roots", "Simplify the radical √18", "roots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "Solve the equation 2x + 3 = 7"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		if got := Classify(text); got != first {
			t.Fatalf("Classify not deterministic: %q then %q", first, got)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	if Classify("ADD 2") != Classify("add 2") {
		t.Error("classification should be case-insensitive")
	}
	if got := Classify("ADD 2"); got != "addition" {
		t.Errorf("Classify(ADD 2) = %q, want addition", got)
	}
}

func TestClassifySlashTieGoesToFractions(t *testing.T) {
	// "/" is a keyword for both fractions and division; two occurrences
	// each. Fractions is registered first and must win the tie.
	got := Classify("what is 1/2 + 1/4?")
	if got != "fractions" {
		t.Errorf("Classify = %q, want fractions", got)
	}
}

func TestLookup(t *testing.T) {
	tp, ok := Lookup("fractions")
	if !ok {
		t.Fatal("Lookup(fractions) not found")
	}
	if tp.Name != "Fractions" || tp.Category != "Number Sense" {
		t.Errorf("unexpected topic: %+v", tp)
	}

	general, ok := Lookup(GeneralID)
	if ok {
		t.Error("GeneralID should not be a registered topic")
	}
	if general.Name != "General" || general.Category != "Other" {
		t.Errorf("unexpected fallback topic: %+v", general)
	}
}

func TestAllOrderFixed(t *testing.T) {
	all := All()
	if len(all) != 17 {
		t.Fatalf("expected 17 topics, got %d", len(all))
	}
	if all[0].ID != "addition" {
		t.Errorf("first topic = %q, want addition", all[0].ID)
	}
	// Fractions must precede division for the slash tie-break.
	frac, div := -1, -1
	for i, tp := range all {
		switch tp.ID {
		case "fractions":
			frac = i
		case "division":
			div = i
		}
	}
	if frac == -1 || div == -1 || frac > div {
		t.Errorf("fractions (%d) must be registered before division (%d)", frac, div)
	}
}

func TestTagQuestions(t *testing.T) {
	questions := []model.QuestionResult{
		{QuestionNumber: "1", Text: "Add 2 and 3"},
		{QuestionNumber: "2", Text: "Find the area of the circle", Topic: "word-problems"},
	}

	tagged := TagQuestions(questions)

	if tagged[0].Topic != "addition" {
		t.Errorf("expected untagged question to classify as addition, got %q", tagged[0].Topic)
	}
	if tagged[1].Topic != "word-problems" {
		t.Errorf("pre-assigned topic must be preserved, got %q", tagged[1].Topic)
	}
	if questions[0].Topic != "" {
		t.Error("TagQuestions must not mutate its input")
	}

	if TagQuestions(nil) != nil {
		t.Error("TagQuestions(nil) should return nil")
	}
}
