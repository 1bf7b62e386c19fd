// Package handler exposes the grading service as a JSON API.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradeboard/internal/analytics"
	"github.com/pavelanni/gradeboard/internal/export"
	"github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
	"github.com/pavelanni/gradeboard/internal/store"
)

// Verifier grades extracted student work against an optional answer key.
type Verifier interface {
	VerifyAnswers(ctx context.Context, answerKey, studentWork string) (model.QuestionSet, string, error)
	GeneratePractice(ctx context.Context, topic, difficulty string, count int, missed []model.QuestionResult) ([]model.PracticeProblem, error)
}

// TextExtractor transcribes an uploaded test image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	llm     Verifier
	ocr     TextExtractor
	config  model.ServerConfig
	limiter *limiter
}

// New creates a new Handler.
func New(s *store.Store, v Verifier, t TextExtractor, cfg model.ServerConfig) *Handler {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	return &Handler{store: s, llm: v, ocr: t, config: cfg, limiter: newLimiter()}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/api/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/api/grade", h.handleGrade)
			r.Post("/api/practice", h.handlePractice)
		})

		r.Post("/api/results", h.handleCreateResult)
		r.Get("/api/results", h.handleListResults)
		r.Get("/api/results/{id}", h.handleGetResult)
		r.Delete("/api/results/{id}", h.handleDeleteResult)
		r.Get("/api/tests", h.handleListTests)

		r.Get("/api/analytics", h.handleAnalytics)
		r.Get("/api/mastery", h.handleMastery)
		r.Get("/api/alerts", h.handleAlerts)
		r.Get("/api/compare", h.handleCompare)

		r.Get("/api/class", h.handleGetClass)
		r.Put("/api/class", h.handleSetClass)

		r.Get("/api/export/grades.csv", h.handleExportGrades)
		r.Get("/api/export/detailed.csv", h.handleExportDetailed)
		r.Get("/api/export/summary.csv", h.handleExportSummary)
		r.Get("/api/export/sheets.tsv", h.handleExportSheets)
		r.Get("/api/export/report.html", h.handleExportReport)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users", h.handleCreateUser)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

// Maintain periodically drops expired auth sessions and idle rate-limit
// entries. It blocks until ctx is cancelled.
func (h *Handler) Maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.limiter.cleanup()
			if err := h.store.CleanupExpiredSessions(); err != nil {
				slog.Warn("cleanup expired sessions", "error", err)
			}
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// handleGrade runs the full pipeline for one uploaded test image:
// validate, extract text, verify answers, store, and return the result.
func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(h.config.MaxImageBytes); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	studentName := r.FormValue("student_name")
	testName := r.FormValue("test_name")
	if studentName == "" || testName == "" {
		h.jsonError(w, r, http.StatusBadRequest, "student_name and test_name are required")
		return
	}

	image, err := readImage(r, "image", h.config.MaxImageBytes)
	if err != nil {
		var msgID string
		switch {
		case errors.Is(err, errImageTooLarge):
			msgID = "ImageTooLarge"
		default:
			msgID = "InvalidImage"
		}
		h.jsonError(w, r, http.StatusBadRequest, i18n.T(r.Context(), msgID))
		return
	}

	extracted, err := h.ocr.ExtractText(r.Context(), image)
	if err != nil {
		slog.Error("text extraction failed", "student", studentName, "error", err)
		h.jsonError(w, r, http.StatusBadGateway, i18n.T(r.Context(), "GradingFailed"))
		return
	}

	verification, _, err := h.llm.VerifyAnswers(r.Context(), r.FormValue("answer_key"), extracted)
	if err != nil {
		slog.Error("verification failed", "student", studentName, "error", err)
		h.jsonError(w, r, http.StatusBadGateway, i18n.T(r.Context(), "GradingFailed"))
		return
	}

	result := model.GradingResult{
		StudentName:   studentName,
		TestName:      testName,
		TestVersion:   r.FormValue("test_version"),
		ExtractedText: extracted,
		Verification:  verification,
		CreatedAt:     time.Now(),
	}
	id, err := h.store.InsertResult(result)
	if err != nil {
		slog.Error("store result", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to store result")
		return
	}
	result.ID = id

	slog.Info("graded submission", "id", id, "student", studentName, "test", testName,
		"valid", verification.Valid)
	h.writeJSON(w, http.StatusCreated, result)
}

// handleCreateResult ingests an externally graded result as JSON.
func (h *Handler) handleCreateResult(w http.ResponseWriter, r *http.Request) {
	var result model.GradingResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if result.StudentName == "" || result.TestName == "" {
		h.jsonError(w, r, http.StatusBadRequest, "studentName and testName are required")
		return
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	id, err := h.store.InsertResult(result)
	if err != nil {
		slog.Error("store result", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to store result")
		return
	}
	result.ID = id
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	var (
		results []model.GradingResult
		err     error
	)
	if test := r.URL.Query().Get("test"); test != "" {
		results, err = h.store.ListResultsByTest(test)
	} else if student := r.URL.Query().Get("student"); student != "" {
		results, err = h.store.StudentHistory(student)
	} else {
		results, err = h.store.ListResults()
	}
	if err != nil {
		slog.Error("list results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to list results")
		return
	}
	if results == nil {
		results = []model.GradingResult{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid result ID")
		return
	}
	result, err := h.store.GetResult(id)
	if errors.Is(err, sql.ErrNoRows) {
		h.jsonError(w, r, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		slog.Error("get result", "id", id, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to get result")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid result ID")
		return
	}
	if err := h.store.DeleteResult(id); err != nil {
		slog.Error("delete result", "id", id, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to delete result")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": i18n.T(r.Context(), "ResultDeleted")})
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.store.ListTests()
	if err != nil {
		slog.Error("list tests", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to list tests")
		return
	}
	if tests == nil {
		tests = []string{}
	}
	h.writeJSON(w, http.StatusOK, tests)
}

// resultsForTest loads the result collection an analytics endpoint works
// on: one test when ?test= is given, everything otherwise.
func (h *Handler) resultsForTest(r *http.Request) ([]model.GradingResult, error) {
	if test := r.URL.Query().Get("test"); test != "" {
		return h.store.ListResultsByTest(test)
	}
	return h.store.ListResults()
}

func (h *Handler) passThreshold() float64 {
	info, err := h.store.ClassInfo()
	if err != nil {
		slog.Warn("load class info", "error", err)
		return h.config.PassThreshold
	}
	return info.PassThreshold
}

// handleAnalytics returns the class snapshot. An empty collection is not
// an error: the response is an explicit empty signal the consumer can
// branch on.
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultsForTest(r)
	if err != nil {
		slog.Error("load results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}

	snap := analytics.Analyze(results, h.passThreshold())
	if snap == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"empty": true})
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleMastery(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultsForTest(r)
	if err != nil {
		slog.Error("load results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}

	if student := r.URL.Query().Get("student"); student != "" {
		var own []model.GradingResult
		for _, res := range results {
			if res.StudentName == student {
				own = append(own, res)
			}
		}
		mastery := analytics.StudentTopicMastery(own)
		h.writeJSON(w, http.StatusOK, map[string]any{
			"student": student,
			"topics":  mastery,
			"review":  analytics.RecommendedReviewTopics(mastery, 0),
		})
		return
	}

	mastery := analytics.ComputeTopicMastery(results)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"topics":     mastery,
		"review":     analytics.RecommendedReviewTopics(mastery, 0),
		"categories": analytics.GroupTopicsByCategory(mastery),
	})
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	test := r.URL.Query().Get("test")
	if test == "" {
		h.jsonError(w, r, http.StatusBadRequest, "test query parameter is required")
		return
	}

	current, err := h.store.ListResultsByTest(test)
	if err != nil {
		slog.Error("load results", "test", test, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}
	history, err := h.store.HistoryBefore(test)
	if err != nil {
		slog.Error("load history", "test", test, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load history")
		return
	}

	alerts := analytics.DetectAlerts(current, history, h.passThreshold())
	h.writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	currentName := r.URL.Query().Get("current")
	previousName := r.URL.Query().Get("previous")
	if currentName == "" || previousName == "" {
		h.jsonError(w, r, http.StatusBadRequest, "current and previous query parameters are required")
		return
	}

	current, err := h.store.ListResultsByTest(currentName)
	if err != nil {
		slog.Error("load results", "test", currentName, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}
	previous, err := h.store.ListResultsByTest(previousName)
	if err != nil {
		slog.Error("load results", "test", previousName, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}

	comparison := analytics.Compare(current, previous, h.passThreshold())
	if comparison == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"empty": true})
		return
	}
	h.writeJSON(w, http.StatusOK, comparison)
}

type practiceRequest struct {
	Topic      string                 `json:"topic"`
	Difficulty string                 `json:"difficulty"`
	Count      int                    `json:"count"`
	Missed     []model.QuestionResult `json:"missedQuestions"`
}

func (h *Handler) handlePractice(w http.ResponseWriter, r *http.Request) {
	var req practiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		h.jsonError(w, r, http.StatusBadRequest, i18n.T(r.Context(), "TopicRequired"))
		return
	}

	problems, err := h.llm.GeneratePractice(r.Context(), req.Topic, req.Difficulty, req.Count, req.Missed)
	if err != nil {
		slog.Error("practice generation failed", "topic", req.Topic, "error", err)
		h.jsonError(w, r, http.StatusBadGateway, i18n.T(r.Context(), "PracticeFailed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"problems": problems})
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.ClassInfo()
	if err != nil {
		slog.Error("load class info", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load class settings")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"className":     info.ClassName,
		"passThreshold": info.PassThreshold,
	})
}

func (h *Handler) handleSetClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassName     string  `json:"className"`
		PassThreshold float64 `json:"passThreshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PassThreshold <= 0 || req.PassThreshold > 100 {
		req.PassThreshold = analytics.DefaultPassThreshold
	}

	if err := h.store.SetClassInfo(model.ClassInfo{
		ClassName:     req.ClassName,
		PassThreshold: req.PassThreshold,
	}); err != nil {
		slog.Error("save class info", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to save class settings")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": i18n.T(r.Context(), "ClassUpdated")})
}

func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request, contentType, filename string, write func([]model.GradingResult) error) {
	results, err := h.resultsForTest(r)
	if err != nil {
		slog.Error("load results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}
	if len(results) == 0 {
		h.jsonError(w, r, http.StatusNotFound, i18n.T(r.Context(), "NoResults"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := write(results); err != nil {
		slog.Error("export", "file", filename, "error", err)
	}
}

func (h *Handler) handleExportGrades(w http.ResponseWriter, r *http.Request) {
	h.exportResults(w, r, "text/csv", "grades.csv", func(results []model.GradingResult) error {
		return export.WriteGradesCSV(w, results)
	})
}

func (h *Handler) handleExportDetailed(w http.ResponseWriter, r *http.Request) {
	h.exportResults(w, r, "text/csv", "detailed_grades.csv", func(results []model.GradingResult) error {
		return export.WriteDetailedCSV(w, results)
	})
}

func (h *Handler) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	h.exportResults(w, r, "text/tab-separated-values", "grades_for_sheets.tsv", func(results []model.GradingResult) error {
		return export.WriteSheetsTSV(w, results)
	})
}

func (h *Handler) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultsForTest(r)
	if err != nil {
		slog.Error("load results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}
	snap := analytics.Analyze(results, h.passThreshold())
	if snap == nil {
		h.jsonError(w, r, http.StatusNotFound, i18n.T(r.Context(), "NoResults"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="class_analytics.csv"`)
	if err := export.WriteSummaryCSV(w, snap); err != nil {
		slog.Error("export summary", "error", err)
	}
}

func (h *Handler) handleExportReport(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultsForTest(r)
	if err != nil {
		slog.Error("load results", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to load results")
		return
	}
	snap := analytics.Analyze(results, h.passThreshold())
	if snap == nil {
		h.jsonError(w, r, http.StatusNotFound, i18n.T(r.Context(), "NoResults"))
		return
	}

	info, err := h.store.ClassInfo()
	if err != nil {
		slog.Warn("load class info", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteHTMLReport(w, snap, info.ClassName, time.Now()); err != nil {
		slog.Error("export report", "error", err)
	}
}
