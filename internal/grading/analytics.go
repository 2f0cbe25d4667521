package grading

import (
	"fmt"

	"github.com/arzan03/EduHub/internal/models"
	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy    = "easy"
	DifficultyMedium  = "medium"
	DifficultyHard    = "hard"
	DifficultyUnrated = "unrated"

	defaultTopic = "general"
)

type QuestionStats struct {
	QuestionID   primitive.ObjectID `json:"question_id"`
	Text         string             `json:"text"`
	Type         string             `json:"type"`
	Topic        string             `json:"topic"`
	Points       float64            `json:"points"`
	AttemptCount int                `json:"attempt_count"`
	CorrectCount int                `json:"correct_count"`
	CorrectRate  float64            `json:"correct_rate"`
	Difficulty   string             `json:"difficulty"`
	OptionCounts []int              `json:"option_counts"`
}

type TopicStats struct {
	Topic          string  `json:"topic"`
	Questions      int     `json:"questions"`
	AttemptCount   int     `json:"attempt_count"`
	CorrectCount   int     `json:"correct_count"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
	CorrectRate    float64 `json:"correct_rate"`
	Difficulty     string  `json:"difficulty"`
}

type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Report aggregates every result of one exam.
type Report struct {
	ExamID             primitive.ObjectID `json:"exam_id"`
	Title              string             `json:"title"`
	Attempts           int                `json:"attempts"`
	UniqueStudents     int                `json:"unique_students"`
	Average            float64            `json:"average"`
	Median             float64            `json:"median"`
	StdDev             float64            `json:"std_dev"`
	Highest            float64            `json:"highest"`
	Lowest             float64            `json:"lowest"`
	PassRate           float64            `json:"pass_rate"`
	AverageTimeSeconds float64            `json:"average_time_seconds"`
	Questions          []QuestionStats    `json:"questions"`
	Topics             []TopicStats       `json:"topics"`
	Distribution       []Bucket           `json:"distribution"`
}

// correctRate is the unrounded share of correct attempts. Labels are
// derived from it, only the reported value is rounded.
func correctRate(correct, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return float64(correct) / float64(attempts)
}

// Difficulty labels a correct rate in [0,1]. With no attempts the question
// is unrated.
func Difficulty(rate float64, attempts int) string {
	switch {
	case attempts == 0:
		return DifficultyUnrated
	case rate >= 0.7:
		return DifficultyEasy
	case rate >= 0.4:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// Analyze builds the analytics report of exam over results.
func Analyze(exam models.Exam, results []models.ExamResult) Report {
	r := Report{
		ExamID:       exam.ID,
		Title:        exam.Title,
		Attempts:     len(results),
		Distribution: emptyDistribution(),
	}

	qIndex := make(map[primitive.ObjectID]int, len(exam.Questions))
	r.Questions = make([]QuestionStats, len(exam.Questions))
	for i, q := range exam.Questions {
		qIndex[q.ID] = i
		r.Questions[i] = QuestionStats{
			QuestionID:   q.ID,
			Text:         q.Text,
			Type:         q.Type,
			Topic:        topicOf(q),
			Points:       q.Points,
			OptionCounts: make([]int, len(q.Options)),
		}
	}

	var (
		percentages = make(stats.Float64Data, 0, len(results))
		times       = make(stats.Float64Data, 0, len(results))
		students    = make(map[primitive.ObjectID]struct{})
		passed      int
		earned      = make([]float64, len(exam.Questions))
	)

	for _, res := range results {
		percentages = append(percentages, res.Percentage)
		times = append(times, float64(res.TimeSpentSeconds))
		students[res.StudentID] = struct{}{}
		if res.Passed {
			passed++
		}
		r.Distribution[bucketIndex(res.Percentage)].Count++

		for _, a := range res.Answers {
			i, ok := qIndex[a.QuestionID]
			if !ok {
				continue
			}
			qs := &r.Questions[i]
			qs.AttemptCount++
			if a.IsCorrect {
				qs.CorrectCount++
			}
			earned[i] += a.PointsEarned
			for _, opt := range a.SelectedOptions {
				if opt >= 0 && opt < len(qs.OptionCounts) {
					qs.OptionCounts[opt]++
				}
			}
		}
	}

	for i := range r.Questions {
		qs := &r.Questions[i]
		rate := correctRate(qs.CorrectCount, qs.AttemptCount)
		qs.CorrectRate = Round2(rate)
		qs.Difficulty = Difficulty(rate, qs.AttemptCount)
	}
	r.Topics = topicStats(exam, r.Questions, earned)
	r.UniqueStudents = len(students)

	if len(percentages) == 0 {
		return r
	}

	mean, _ := stats.Mean(percentages)
	median, _ := stats.Median(percentages)
	sd, _ := stats.StandardDeviationPopulation(percentages)
	maxP, _ := stats.Max(percentages)
	minP, _ := stats.Min(percentages)
	avgTime, _ := stats.Mean(times)

	r.Average = Round2(mean)
	r.Median = Round2(median)
	r.StdDev = Round2(sd)
	r.Highest = maxP
	r.Lowest = minP
	r.AverageTimeSeconds = Round2(avgTime)
	r.PassRate = Percentage(float64(passed), float64(len(results)))
	return r
}

func topicStats(exam models.Exam, questions []QuestionStats, earned []float64) []TopicStats {
	order := make([]string, 0)
	byTopic := make(map[string]*TopicStats)

	for i, qs := range questions {
		ts, ok := byTopic[qs.Topic]
		if !ok {
			ts = &TopicStats{Topic: qs.Topic}
			byTopic[qs.Topic] = ts
			order = append(order, qs.Topic)
		}
		ts.Questions++
		ts.AttemptCount += qs.AttemptCount
		ts.CorrectCount += qs.CorrectCount
		ts.PointsEarned += earned[i]
		ts.PointsPossible += exam.Questions[i].Points * float64(qs.AttemptCount)
	}

	out := make([]TopicStats, 0, len(order))
	for _, topic := range order {
		ts := byTopic[topic]
		rate := correctRate(ts.CorrectCount, ts.AttemptCount)
		ts.CorrectRate = Round2(rate)
		ts.PointsEarned = Round2(ts.PointsEarned)
		ts.PointsPossible = Round2(ts.PointsPossible)
		ts.Difficulty = Difficulty(rate, ts.AttemptCount)
		out = append(out, *ts)
	}
	return out
}

func topicOf(q models.Question) string {
	if q.Topic == "" {
		return defaultTopic
	}
	return q.Topic
}

func emptyDistribution() []Bucket {
	b := make([]Bucket, 10)
	for i := range b {
		hi := i*10 + 9
		if i == 9 {
			hi = 100
		}
		b[i].Range = fmt.Sprintf("%d-%d", i*10, hi)
	}
	return b
}

func bucketIndex(pct float64) int {
	i := int(pct / 10)
	if i < 0 {
		return 0
	}
	if i > 9 {
		return 9
	}
	return i
}
