package analytics

import (
	"strconv"
	"testing"

	"github.com/pavelanni/gradeboard/internal/model"
)

func topicQuestion(topicID string, correct bool) model.QuestionResult {
	return model.QuestionResult{Topic: topicID, Correct: correct}
}

func TestComputeTopicMasteryCounts(t *testing.T) {
	results := []model.GradingResult{
		{StudentName: "A", Verification: model.QuestionSet{Valid: true, Questions: []model.QuestionResult{
			topicQuestion("addition", true),
			topicQuestion("addition", false),
			topicQuestion("fractions", true),
		}}},
		{StudentName: "B", Verification: model.QuestionSet{Valid: true, Questions: []model.QuestionResult{
			topicQuestion("addition", true),
			topicQuestion("fractions", false),
			topicQuestion("fractions", false),
		}}},
		malformedResult("C"),
	}

	mastery := ComputeTopicMastery(results)
	if len(mastery) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(mastery))
	}

	byID := map[string]TopicMastery{}
	for _, m := range mastery {
		byID[m.TopicID] = m
	}

	add := byID["addition"]
	if add.Correct != 2 || add.Total != 3 {
		t.Errorf("addition = %d/%d, want 2/3", add.Correct, add.Total)
	}
	if add.TopicName != "Addition" || add.Category != "Arithmetic" {
		t.Errorf("addition metadata = %q/%q", add.TopicName, add.Category)
	}
	if !add.NeedsReview {
		t.Error("addition at 66.7%% should need review")
	}

	frac := byID["fractions"]
	if frac.Correct != 1 || frac.Total != 3 {
		t.Errorf("fractions = %d/%d, want 1/3", frac.Correct, frac.Total)
	}

	// Weakest topic first.
	if mastery[0].TopicID != "fractions" {
		t.Errorf("first topic = %q, want fractions", mastery[0].TopicID)
	}
}

func TestTopicMasteryConservation(t *testing.T) {
	results := classFixture()

	totalCorrect, totalQuestions := 0, 0
	for _, r := range results {
		for _, q := range r.Verification.Questions {
			totalQuestions++
			if q.Correct {
				totalCorrect++
			}
		}
	}

	mastery := ComputeTopicMastery(results)
	sumCorrect, sumTotal := 0, 0
	for _, m := range mastery {
		sumCorrect += m.Correct
		sumTotal += m.Total
	}
	if sumCorrect != totalCorrect {
		t.Errorf("sum of correct = %d, want %d", sumCorrect, totalCorrect)
	}
	if sumTotal != totalQuestions {
		t.Errorf("sum of total = %d, want %d", sumTotal, totalQuestions)
	}
}

func TestTopicMasteryDerivesTopicFromText(t *testing.T) {
	results := []model.GradingResult{
		{StudentName: "A", Verification: model.QuestionSet{Valid: true, Questions: []model.QuestionResult{
			{Text: "Add 2 and 3", Correct: true},
			{Text: "zzz", Correct: false},
		}}},
	}

	mastery := ComputeTopicMastery(results)
	byID := map[string]TopicMastery{}
	for _, m := range mastery {
		byID[m.TopicID] = m
	}
	if _, ok := byID["addition"]; !ok {
		t.Error("expected derived addition topic")
	}
	general, ok := byID["general"]
	if !ok {
		t.Fatal("expected fallback general topic")
	}
	if general.TopicName != "General" || general.Category != "Other" {
		t.Errorf("general metadata = %q/%q", general.TopicName, general.Category)
	}

	// Classification never writes back onto the input records.
	if results[0].Verification.Questions[0].Topic != "" {
		t.Error("aggregation must not mutate input question topics")
	}
}

func TestRecommendedReviewTopics(t *testing.T) {
	var questions []model.QuestionResult
	// Seven topics all at 0% mastery, one at 100%.
	weak := []string{"addition", "subtraction", "multiplication", "division", "decimals", "percentages", "algebra"}
	for _, id := range weak {
		questions = append(questions, topicQuestion(id, false))
	}
	questions = append(questions, topicQuestion("geometry", true))

	mastery := ComputeTopicMastery([]model.GradingResult{
		{StudentName: "A", Verification: model.QuestionSet{Valid: true, Questions: questions}},
	})

	recommended := RecommendedReviewTopics(mastery, 0)
	if len(recommended) != 5 {
		t.Fatalf("review list capped at 5, got %d", len(recommended))
	}
	for _, m := range recommended {
		if m.MasteryPercentage >= ReviewThreshold {
			t.Errorf("topic %s at %v%% should not be recommended", m.TopicID, m.MasteryPercentage)
		}
	}
}

func TestGroupTopicsByCategory(t *testing.T) {
	mastery := []TopicMastery{
		{TopicID: "fractions", Category: "Number Sense", MasteryPercentage: 30},
		{TopicID: "addition", Category: "Arithmetic", MasteryPercentage: 50},
		{TopicID: "decimals", Category: "Number Sense", MasteryPercentage: 80},
		{TopicID: "mystery", MasteryPercentage: 90},
	}

	grouped := GroupTopicsByCategory(mastery)
	if len(grouped) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(grouped))
	}
	ns := grouped["Number Sense"]
	if len(ns) != 2 || ns[0].TopicID != "fractions" || ns[1].TopicID != "decimals" {
		t.Errorf("Number Sense group order wrong: %+v", ns)
	}
	if len(grouped["Other"]) != 1 {
		t.Errorf("uncategorized topics should group under Other: %+v", grouped)
	}
}

func TestStudentTopicMastery(t *testing.T) {
	studentResults := []model.GradingResult{
		{StudentName: "Sam", Verification: model.QuestionSet{Valid: true, Questions: []model.QuestionResult{
			topicQuestion("algebra", true),
			topicQuestion("algebra", true),
			topicQuestion("geometry", false),
		}}},
	}

	mastery := StudentTopicMastery(studentResults)
	byID := map[string]TopicMastery{}
	for _, m := range mastery {
		byID[m.TopicID] = m
	}
	if got := byID["algebra"].MasteryPercentage; got != 100 {
		t.Errorf("algebra mastery = %v, want 100", got)
	}
	if got := byID["geometry"].MasteryPercentage; got != 0 {
		t.Errorf("geometry mastery = %v, want 0", got)
	}
}

func TestMasteryZeroGuard(t *testing.T) {
	if m := ComputeTopicMastery(nil); len(m) != 0 {
		t.Errorf("expected no topics for empty input, got %d", len(m))
	}
	// A large malformed-only batch still yields no topics and no panic.
	var results []model.GradingResult
	for i := 0; i < 10; i++ {
		results = append(results, malformedResult("s"+strconv.Itoa(i)))
	}
	if m := ComputeTopicMastery(results); len(m) != 0 {
		t.Errorf("expected no topics for malformed input, got %d", len(m))
	}
}
