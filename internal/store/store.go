package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/gradeboard/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_name TEXT NOT NULL,
		test_name TEXT NOT NULL,
		test_version TEXT NOT NULL DEFAULT '',
		extracted_text TEXT NOT NULL DEFAULT '',
		verification TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_test ON results(test_name);
	CREATE INDEX IF NOT EXISTS idx_results_student ON results(student_name, created_at);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'teacher',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS class_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertResult stores a graded submission. The verification payload is
// stored as-is: a JSON array when the grading pipeline parsed cleanly, the
// raw LLM text otherwise.
func (s *Store) InsertResult(r model.GradingResult) (int64, error) {
	verification, err := r.Verification.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode verification: %w", err)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO results (student_name, test_name, test_version, extracted_text, verification, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.StudentName, r.TestName, r.TestVersion, r.ExtractedText, verification, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetResult returns a graded submission by ID.
func (s *Store) GetResult(id int64) (model.GradingResult, error) {
	var r model.GradingResult
	var verification string
	err := s.db.QueryRow(
		`SELECT id, student_name, test_name, test_version, extracted_text, verification, created_at
		 FROM results WHERE id = ?`, id,
	).Scan(&r.ID, &r.StudentName, &r.TestName, &r.TestVersion, &r.ExtractedText, &verification, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	r.Verification = model.DecodeQuestionSet(verification)
	return r, nil
}

func (s *Store) scanResults(rows *sql.Rows) ([]model.GradingResult, error) {
	defer rows.Close()
	var results []model.GradingResult
	for rows.Next() {
		var r model.GradingResult
		var verification string
		if err := rows.Scan(&r.ID, &r.StudentName, &r.TestName, &r.TestVersion, &r.ExtractedText, &verification, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Verification = model.DecodeQuestionSet(verification)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListResults returns all graded submissions, oldest first.
func (s *Store) ListResults() ([]model.GradingResult, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, test_name, test_version, extracted_text, verification, created_at
		 FROM results ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	return s.scanResults(rows)
}

// ListResultsByTest returns all submissions for one test, oldest first.
func (s *Store) ListResultsByTest(testName string) ([]model.GradingResult, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, test_name, test_version, extracted_text, verification, created_at
		 FROM results WHERE test_name = ? ORDER BY created_at, id`, testName,
	)
	if err != nil {
		return nil, err
	}
	return s.scanResults(rows)
}

// StudentHistory returns one student's submissions ordered oldest to
// newest, the ordering the trend detector expects.
func (s *Store) StudentHistory(studentName string) ([]model.GradingResult, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, test_name, test_version, extracted_text, verification, created_at
		 FROM results WHERE student_name = ? ORDER BY created_at, id`, studentName,
	)
	if err != nil {
		return nil, err
	}
	return s.scanResults(rows)
}

// HistoryBefore returns every submission created before the oldest entry of
// the named test, oldest first. Used as the historical backdrop for trend
// detection on that test. An unknown test yields the full history.
func (s *Store) HistoryBefore(testName string) ([]model.GradingResult, error) {
	var cutoff sql.NullTime
	err := s.db.QueryRow(
		`SELECT MIN(created_at) FROM results WHERE test_name = ?`, testName,
	).Scan(&cutoff)
	if err != nil {
		return nil, err
	}
	if !cutoff.Valid {
		return s.ListResults()
	}
	rows, err := s.db.Query(
		`SELECT id, student_name, test_name, test_version, extracted_text, verification, created_at
		 FROM results WHERE created_at < ? ORDER BY created_at, id`, cutoff.Time,
	)
	if err != nil {
		return nil, err
	}
	return s.scanResults(rows)
}

// ListTests returns distinct test names, most recently graded first.
func (s *Store) ListTests() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT test_name FROM results GROUP BY test_name ORDER BY MAX(created_at) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tests = append(tests, name)
	}
	return tests, rows.Err()
}

// DeleteResult removes a graded submission.
func (s *Store) DeleteResult(id int64) error {
	_, err := s.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	return err
}

// ResultCount returns the number of stored submissions.
func (s *Store) ResultCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}
