// Package topic maps free-text question statements onto a fixed taxonomy of
// math topics using keyword matching.
package topic

import (
	"strings"

	"github.com/pavelanni/gradeboard/internal/model"
)

// GeneralID is the fallback topic id for questions matching no keyword.
const GeneralID = "general"

// Topic is one entry in the taxonomy.
type Topic struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// taxonomy is the built-in topic catalog. It is ordered: keyword-score ties
// are broken toward the earlier entry, so the order is part of the
// classifier's contract. In particular "fractions" precedes "division" so
// that slash-heavy fraction arithmetic resolves to fractions.
// Never mutated after init.
var taxonomy = []Topic{
	{ID: "addition", Name: "Addition", Category: "Arithmetic",
		Keywords: []string{"add", "plus", "sum", "total", "+"}},
	{ID: "subtraction", Name: "Subtraction", Category: "Arithmetic",
		Keywords: []string{"subtract", "minus", "difference", "take away", "-"}},
	{ID: "multiplication", Name: "Multiplication", Category: "Arithmetic",
		Keywords: []string{"multiply", "times", "product", "×", "*"}},
	{ID: "fractions", Name: "Fractions", Category: "Number Sense",
		Keywords: []string{"fraction", "numerator", "denominator", "half", "third", "quarter", "/"}},
	{ID: "division", Name: "Division", Category: "Arithmetic",
		Keywords: []string{"divide", "quotient", "split", "÷", "/"}},
	{ID: "decimals", Name: "Decimals", Category: "Number Sense",
		Keywords: []string{"decimal", "point", "."}},
	{ID: "percentages", Name: "Percentages", Category: "Number Sense",
		Keywords: []string{"percent", "%", "percentage"}},
	{ID: "algebra", Name: "Algebra", Category: "Algebra",
		Keywords: []string{"solve", "equation", "variable", "x", "y", "="}},
	{ID: "linear-equations", Name: "Linear Equations", Category: "Algebra",
		Keywords: []string{"linear", "slope", "intercept", "y = mx + b"}},
	{ID: "quadratic", Name: "Quadratic Equations", Category: "Algebra",
		Keywords: []string{"quadratic", "x²", "parabola", "factor"}},
	{ID: "geometry", Name: "Geometry", Category: "Geometry",
		Keywords: []string{"area", "perimeter", "volume", "angle", "triangle", "circle", "square", "rectangle"}},
	{ID: "trigonometry", Name: "Trigonometry", Category: "Trigonometry",
		Keywords: []string{"sin", "cos", "tan", "sine", "cosine", "tangent", "angle"}},
	{ID: "statistics", Name: "Statistics", Category: "Statistics",
		Keywords: []string{"mean", "median", "mode", "average", "probability", "data"}},
	{ID: "word-problems", Name: "Word Problems", Category: "Problem Solving",
		Keywords: []string{"how many", "how much", "find", "calculate", "determine"}},
	{ID: "order-of-operations", Name: "Order of Operations", Category: "Arithmetic",
		Keywords: []string{"pemdas", "bodmas", "order", "parentheses", "brackets"}},
	{ID: "exponents", Name: "Exponents", Category: "Algebra",
		Keywords: []string{"exponent", "power", "squared", "cubed", "^", "²", "³"}},
	{ID: "roots", Name: "Roots & Radicals", Category: "Algebra",
		Keywords: []string{"square root", "cube root", "radical", "√"}},
}

var byID = func() map[string]Topic {
	m := make(map[string]Topic, len(taxonomy))
	for _, t := range taxonomy {
		m[t.ID] = t
	}
	return m
}()

// All returns the taxonomy in registration order. The returned slice must
// not be modified.
func All() []Topic {
	return taxonomy
}

// Lookup returns the topic for an id. Unknown ids (including GeneralID)
// resolve to the synthetic General topic.
func Lookup(id string) (Topic, bool) {
	if t, ok := byID[id]; ok {
		return t, true
	}
	return Topic{ID: GeneralID, Name: "General", Category: "Other"}, false
}

// Classify maps a question statement to a topic id. Matching is
// case-insensitive substring occurrence counting: each keyword contributes
// the number of times it appears in the text. The topic with the highest
// total wins; ties go to the earlier-registered topic. Text matching no
// keyword at all classifies as GeneralID.
//
// Substring matching is deliberate: "x" matches inside longer words too.
// The imprecision is accepted in exchange for zero-configuration tagging.
func Classify(text string) string {
	lowered := strings.ToLower(text)

	bestID := GeneralID
	bestScore := 0
	for _, t := range taxonomy {
		score := 0
		for _, kw := range t.Keywords {
			score += strings.Count(lowered, kw)
		}
		if score > bestScore {
			bestScore = score
			bestID = t.ID
		}
	}
	return bestID
}

// TagQuestions returns a copy of questions with empty topic fields filled
// in by classification. The input slice is not modified.
func TagQuestions(questions []model.QuestionResult) []model.QuestionResult {
	if questions == nil {
		return nil
	}
	tagged := make([]model.QuestionResult, len(questions))
	for i, q := range questions {
		if q.Topic == "" {
			q.Topic = Classify(q.Text)
		}
		tagged[i] = q
	}
	return tagged
}
