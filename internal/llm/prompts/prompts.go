package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/gradeboard/internal/model"
)

//go:embed prompts/*.txt
var embeddedFS embed.FS

// LoadEmbedded loads the built-in prompt templates.
func LoadEmbedded() error {
	return Load(embeddedFS)
}

var (
	studentWorkRegex        = regexp.MustCompile(`(?i)</?\s*student-work\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// PromptVariant represents a grading prompt variant.
type PromptVariant string

const (
	// PromptStrict requires exact answers with no partial credit.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default grading variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient accepts equivalent forms and minor notation slips.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce        sync.Once
	loadErr         error
	verifyTemplates map[PromptVariant]*template.Template
	practiceTmpl    *template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// VerifyData holds template data for verification prompts.
type VerifyData struct {
	AnswerKey   string
	StudentWork string
}

// PracticeData holds template data for practice generation prompts.
type PracticeData struct {
	Topic      string
	Difficulty string
	Count      int
	Guideline  string
	Missed     []model.QuestionResult
}

// Load loads prompt templates from the embedded filesystem.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		verifyTemplates = make(map[PromptVariant]*template.Template)

		for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
			file := "prompts/verify_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New("verify").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			verifyTemplates[v] = tmpl
		}

		content, err := fs.ReadFile(fsys, "prompts/practice.txt")
		if err != nil {
			loadErr = errors.New("failed to read prompt file prompts/practice.txt: " + err.Error())
			return
		}
		practiceTmpl, err = template.New("practice").Parse(string(content))
		if err != nil {
			loadErr = errors.New("failed to parse prompt template prompts/practice.txt: " + err.Error())
			return
		}
	})
	return loadErr
}

// BuildVerifyPrompt builds an answer verification prompt using the
// specified variant. The student work is sanitized before templating.
func BuildVerifyPrompt(variant PromptVariant, answerKey, studentWork string) (string, error) {
	if verifyTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := verifyTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := VerifyData{
		AnswerKey:   strings.TrimSpace(answerKey),
		StudentWork: sanitizeWork(studentWork),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildPracticePrompt builds a practice problem generation prompt.
// Missed questions, when present, steer generation toward similar problems.
func BuildPracticePrompt(topic, difficulty string, count int, missed []model.QuestionResult) (string, error) {
	if practiceTmpl == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	if count <= 0 {
		count = 5
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	data := PracticeData{
		Topic:      topic,
		Difficulty: difficulty,
		Count:      count,
		Guideline:  difficultyGuideline(difficulty),
		Missed:     missed,
	}

	var buf bytes.Buffer
	if err := practiceTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func difficultyGuideline(difficulty string) string {
	switch difficulty {
	case "easy":
		return "use simple numbers and straightforward operations"
	case "hard":
		return "use larger numbers, multi-step problems, or more complex concepts"
	default:
		return "use moderate numbers and standard problem formats"
	}
}

func sanitizeWork(work string) string {
	work = studentWorkRegex.ReplaceAllString(work, "")
	work = systemInstructionsRegex.ReplaceAllString(work, "")
	work = strings.TrimSpace(work)

	if work == "" {
		return "[No work provided]"
	}

	if utf8.RuneCountInString(work) > 10000 {
		runes := []rune(work)
		runes = runes[:10000]
		work = string(runes) + "\n\n[Work truncated due to length]"
	}

	return work
}
