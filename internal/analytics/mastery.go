package analytics

import (
	"sort"

	"github.com/pavelanni/gradeboard/internal/model"
	"github.com/pavelanni/gradeboard/internal/topic"
)

// ReviewThreshold is the mastery percentage below which a topic is flagged
// for review.
const ReviewThreshold = 70.0

// TopicMastery aggregates correctness for one topic across a result set.
// Recomputed fresh on every request, never stored.
type TopicMastery struct {
	TopicID           string  `json:"topicId"`
	TopicName         string  `json:"topicName"`
	Category          string  `json:"category"`
	Correct           int     `json:"correct"`
	Total             int     `json:"total"`
	MasteryPercentage float64 `json:"masteryPercentage"`
	NeedsReview       bool    `json:"needsReview"`
}

// ComputeTopicMastery aggregates per-topic correctness across every
// question of every submission. Malformed question sets are skipped
// silently. A question's topic is its pre-assigned id when present,
// otherwise derived by classification; the record itself is never mutated.
// Output is sorted ascending by mastery so the weakest topics come first.
func ComputeTopicMastery(results []model.GradingResult) []TopicMastery {
	statsByID := make(map[string]*TopicMastery)
	var order []string

	for _, r := range results {
		if !r.Verification.Valid {
			continue
		}
		for _, q := range r.Verification.Questions {
			id := q.Topic
			if id == "" {
				id = topic.Classify(q.Text)
			}
			st, ok := statsByID[id]
			if !ok {
				info, _ := topic.Lookup(id)
				st = &TopicMastery{TopicID: id, TopicName: info.Name, Category: info.Category}
				statsByID[id] = st
				order = append(order, id)
			}
			st.Total++
			if q.Correct {
				st.Correct++
			}
		}
	}

	mastery := make([]TopicMastery, 0, len(order))
	for _, id := range order {
		st := statsByID[id]
		if st.Total > 0 {
			st.MasteryPercentage = float64(st.Correct) / float64(st.Total) * 100
		}
		st.NeedsReview = st.Total > 0 && st.MasteryPercentage < ReviewThreshold
		mastery = append(mastery, *st)
	}

	sort.SliceStable(mastery, func(i, j int) bool {
		return mastery[i].MasteryPercentage < mastery[j].MasteryPercentage
	})
	return mastery
}

// StudentTopicMastery computes topic mastery over a single student's
// submissions. Same aggregation as ComputeTopicMastery; the caller filters
// the input to one student.
func StudentTopicMastery(studentResults []model.GradingResult) []TopicMastery {
	return ComputeTopicMastery(studentResults)
}

// RecommendedReviewTopics filters mastery records below threshold, sorted
// weakest first, capped at five entries. threshold <= 0 falls back to
// ReviewThreshold. Drives practice-problem topic selection.
func RecommendedReviewTopics(mastery []TopicMastery, threshold float64) []TopicMastery {
	if threshold <= 0 {
		threshold = ReviewThreshold
	}
	var weak []TopicMastery
	for _, m := range mastery {
		if m.MasteryPercentage < threshold {
			weak = append(weak, m)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].MasteryPercentage < weak[j].MasteryPercentage
	})
	if len(weak) > 5 {
		weak = weak[:5]
	}
	return weak
}

// GroupTopicsByCategory partitions mastery records by taxonomy category.
// Each category's list keeps the order of the input slice.
func GroupTopicsByCategory(mastery []TopicMastery) map[string][]TopicMastery {
	grouped := make(map[string][]TopicMastery)
	for _, m := range mastery {
		category := m.Category
		if category == "" {
			category = "Other"
		}
		grouped[category] = append(grouped[category], m)
	}
	return grouped
}
