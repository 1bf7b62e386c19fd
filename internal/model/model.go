package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionID identifies a question within a submission. The grading
// collaborator emits it as either a JSON number or a JSON string.
type QuestionID string

// UnmarshalJSON accepts both string and numeric question identifiers.
func (q *QuestionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = QuestionID(n.String())
	return nil
}

// QuestionResult is one graded question within a submission.
type QuestionResult struct {
	QuestionNumber QuestionID `json:"questionNumber"`
	Text           string     `json:"text"`
	StudentAnswer  string     `json:"studentAnswer"`
	CorrectAnswer  string     `json:"correctAnswer"`
	Correct        bool       `json:"correct"`
	Explanation    string     `json:"explanation,omitempty"`
	Topic          string     `json:"topic,omitempty"`
}

// QuestionSet holds the per-question outcomes of one submission. The
// grading collaborator may return something other than a JSON array (an
// unparseable LLM response); Valid reports whether Questions holds a usable
// array. All aggregations treat an invalid set as zero questions.
type QuestionSet struct {
	Questions []QuestionResult
	Raw       string
	Valid     bool
}

// DecodeQuestionSet decodes a stored verification payload. A payload that
// does not parse as a question array is preserved verbatim in Raw with
// Valid false rather than rejected.
func DecodeQuestionSet(raw string) QuestionSet {
	var questions []QuestionResult
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return QuestionSet{Raw: raw}
	}
	return QuestionSet{Questions: questions, Valid: true}
}

// MarshalJSON renders a valid set as the question array and an invalid one
// as the raw text it arrived with.
func (qs QuestionSet) MarshalJSON() ([]byte, error) {
	if qs.Valid {
		if qs.Questions == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(qs.Questions)
	}
	return json.Marshal(qs.Raw)
}

// UnmarshalJSON mirrors DecodeQuestionSet for payloads arriving over the API.
func (qs *QuestionSet) UnmarshalJSON(data []byte) error {
	var questions []QuestionResult
	if err := json.Unmarshal(data, &questions); err == nil {
		qs.Questions = questions
		qs.Valid = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		qs.Raw = s
		return nil
	}
	qs.Raw = string(data)
	return nil
}

// Encode returns the payload to persist: the JSON array for a valid set,
// the original raw text otherwise.
func (qs QuestionSet) Encode() (string, error) {
	if !qs.Valid {
		return qs.Raw, nil
	}
	data, err := json.Marshal(qs.Questions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GradingResult is one student's graded submission.
type GradingResult struct {
	ID            int64       `json:"id"`
	StudentName   string      `json:"studentName"`
	TestName      string      `json:"testName"`
	TestVersion   string      `json:"testVersion,omitempty"`
	ExtractedText string      `json:"extractedText,omitempty"`
	Verification  QuestionSet `json:"verificationResult"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// PracticeProblem is one generated practice problem.
type PracticeProblem struct {
	Number      int    `json:"number"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Hint        string `json:"hint,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// ClassInfo holds class-level settings stored as metadata.
type ClassInfo struct {
	ClassName     string
	PassThreshold float64
}

// ServerConfig holds runtime server parameters set via CLI flags.
type ServerConfig struct {
	PassThreshold float64 // passing percentage, default 60
	PromptVariant string  // grading prompt variant (strict, standard, lenient)
	SecureCookies bool    // set Secure flag on cookies (disable for local dev)
	MaxImageBytes int64   // upload size cap
}
