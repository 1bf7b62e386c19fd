package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pavelanni/gradeboard/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestResult(t *testing.T, s *Store, student, test string, createdAt time.Time, correct bool) int64 {
	t.Helper()
	id, err := s.InsertResult(model.GradingResult{
		StudentName:   student,
		TestName:      test,
		ExtractedText: "1. answer",
		Verification: model.QuestionSet{
			Questions: []model.QuestionResult{
				{QuestionNumber: "1", Text: "What is 2 + 2?", StudentAnswer: "4", CorrectAnswer: "4", Correct: correct},
			},
			Valid: true,
		},
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("insertTestResult: %v", err)
	}
	return id
}

func TestResultCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return zero count and empty list.
	count, err := s.ResultCount()
	if err != nil {
		t.Fatalf("ResultCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 results, got %d", count)
	}

	list, err := s.ListResults()
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	// Insert and retrieve.
	now := time.Now()
	id := insertTestResult(t, s, "Alice", "Quiz 1", now, true)
	r, err := s.GetResult(id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if r.StudentName != "Alice" {
		t.Errorf("expected student 'Alice', got %q", r.StudentName)
	}
	if r.TestName != "Quiz 1" {
		t.Errorf("expected test 'Quiz 1', got %q", r.TestName)
	}
	if !r.Verification.Valid {
		t.Error("expected valid verification after round trip")
	}
	if len(r.Verification.Questions) != 1 || !r.Verification.Questions[0].Correct {
		t.Errorf("unexpected verification payload: %+v", r.Verification)
	}

	// Not found.
	_, err = s.GetResult(9999)
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	// Delete.
	if err := s.DeleteResult(id); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	count, _ = s.ResultCount()
	if count != 0 {
		t.Errorf("expected 0 results after delete, got %d", count)
	}
}

func TestMalformedVerificationRoundTrip(t *testing.T) {
	s := newTestStore(t)

	raw := "The student did well but I cannot produce JSON."
	id, err := s.InsertResult(model.GradingResult{
		StudentName:  "Bob",
		TestName:     "Quiz 1",
		Verification: model.DecodeQuestionSet(raw),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertResult: %v", err)
	}

	r, err := s.GetResult(id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if r.Verification.Valid {
		t.Error("expected invalid verification to stay invalid")
	}
	if r.Verification.Raw != raw {
		t.Errorf("expected raw text preserved, got %q", r.Verification.Raw)
	}
}

func TestListResultsByTest(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	insertTestResult(t, s, "Alice", "Quiz 1", base, true)
	insertTestResult(t, s, "Bob", "Quiz 1", base.Add(time.Minute), false)
	insertTestResult(t, s, "Alice", "Quiz 2", base.Add(2*time.Minute), true)

	results, err := s.ListResultsByTest("Quiz 1")
	if err != nil {
		t.Fatalf("ListResultsByTest: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Oldest first.
	if results[0].StudentName != "Alice" || results[1].StudentName != "Bob" {
		t.Errorf("unexpected order: %q, %q", results[0].StudentName, results[1].StudentName)
	}

	results, err = s.ListResultsByTest("no such test")
	if err != nil {
		t.Fatalf("ListResultsByTest: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestStudentHistory(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	insertTestResult(t, s, "Alice", "Quiz 2", base.Add(time.Hour), true)
	insertTestResult(t, s, "Alice", "Quiz 1", base, false)
	insertTestResult(t, s, "Bob", "Quiz 1", base, true)

	history, err := s.StudentHistory("Alice")
	if err != nil {
		t.Fatalf("StudentHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	// Oldest first regardless of insertion order.
	if history[0].TestName != "Quiz 1" || history[1].TestName != "Quiz 2" {
		t.Errorf("unexpected order: %q, %q", history[0].TestName, history[1].TestName)
	}
}

func TestHistoryBefore(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	insertTestResult(t, s, "Alice", "Quiz 1", base, true)
	insertTestResult(t, s, "Alice", "Quiz 2", base.Add(time.Hour), true)
	insertTestResult(t, s, "Alice", "Quiz 3", base.Add(2*time.Hour), true)

	history, err := s.HistoryBefore("Quiz 3")
	if err != nil {
		t.Fatalf("HistoryBefore: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].TestName != "Quiz 1" || history[1].TestName != "Quiz 2" {
		t.Errorf("unexpected history: %q, %q", history[0].TestName, history[1].TestName)
	}

	// Unknown test excludes nothing stored after "now", so all rows qualify.
	history, err = s.HistoryBefore("no such test")
	if err != nil {
		t.Fatalf("HistoryBefore unknown: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected full history for unknown test, got %d", len(history))
	}
}

func TestListTests(t *testing.T) {
	s := newTestStore(t)

	tests, err := s.ListTests()
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(tests) != 0 {
		t.Errorf("expected no tests, got %d", len(tests))
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	insertTestResult(t, s, "Alice", "Quiz 1", base, true)
	insertTestResult(t, s, "Bob", "Quiz 1", base.Add(time.Minute), true)
	insertTestResult(t, s, "Alice", "Quiz 2", base.Add(time.Hour), true)

	tests, err = s.ListTests()
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	// Most recently graded first.
	if tests[0] != "Quiz 2" || tests[1] != "Quiz 1" {
		t.Errorf("expected [Quiz 2 Quiz 1], got %v", tests)
	}
}

func TestClassInfo(t *testing.T) {
	s := newTestStore(t)

	// Defaults before anything is stored.
	info, err := s.ClassInfo()
	if err != nil {
		t.Fatalf("ClassInfo: %v", err)
	}
	if info.ClassName != "" {
		t.Errorf("expected empty class name, got %q", info.ClassName)
	}
	if info.PassThreshold != 60 {
		t.Errorf("expected default threshold 60, got %f", info.PassThreshold)
	}

	// Store and read back.
	if err := s.SetClassInfo(model.ClassInfo{ClassName: "Grade 5B", PassThreshold: 70}); err != nil {
		t.Fatalf("SetClassInfo: %v", err)
	}
	info, err = s.ClassInfo()
	if err != nil {
		t.Fatalf("ClassInfo: %v", err)
	}
	if info.ClassName != "Grade 5B" {
		t.Errorf("expected 'Grade 5B', got %q", info.ClassName)
	}
	if info.PassThreshold != 70 {
		t.Errorf("expected threshold 70, got %f", info.PassThreshold)
	}

	// Update existing.
	if err := s.SetClassInfo(model.ClassInfo{ClassName: "Grade 6A", PassThreshold: 65}); err != nil {
		t.Fatalf("SetClassInfo update: %v", err)
	}
	info, _ = s.ClassInfo()
	if info.ClassName != "Grade 6A" || info.PassThreshold != 65 {
		t.Errorf("unexpected info after update: %+v", info)
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{
		Username:     "ms.johnson",
		DisplayName:  "Ms. Johnson",
		PasswordHash: "hash",
		Role:         model.UserRoleTeacher,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("ms.johnson")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("expected user with ID %d, got %+v", id, u)
	}
	if u.Role != model.UserRoleTeacher {
		t.Errorf("expected role teacher, got %q", u.Role)
	}

	// Unknown user returns nil without error.
	u, err = s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername unknown: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}

	// Toggle active.
	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.Active {
		t.Error("expected user inactive after toggle")
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "h", Role: model.UserRoleAdmin, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != id {
		t.Fatalf("expected session for user %d, got %+v", id, sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}
