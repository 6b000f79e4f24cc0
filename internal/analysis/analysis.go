// Package analysis derives the distributions shown on the admin analytics
// view. Nothing is persisted; every summary is computed from the full
// complaint and feedback collections.
package analysis

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"fmt"
	"math"
)

// Bucket is one named count. Buckets keep the order in which their key was
// first seen.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the analytics payload.
type Summary struct {
	Total              int      `json:"total"`
	ByCategory         []Bucket `json:"byCategory"`
	ByStatus           []Bucket `json:"byStatus"`
	FeedbackTotal      int      `json:"feedbackTotal"`
	FeedbackByCategory []Bucket `json:"feedbackByCategory"`
	FeedbackByRating   []Bucket `json:"feedbackByRating"`
	FeedbackAvgRating  float64  `json:"feedbackAvgRating"`
}

type counter struct {
	index   map[string]int
	buckets []Bucket
}

func newCounter() *counter {
	return &counter{index: make(map[string]int), buckets: []Bucket{}}
}

func (c *counter) add(key string) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.buckets)
		c.index[key] = i
		c.buckets = append(c.buckets, Bucket{Key: key})
	}
	c.buckets[i].Count++
}

// RatingKey is the histogram label for a rating, e.g. "4★".
func RatingKey(r int) string {
	return fmt.Sprintf("%d★", r)
}

// Aggregate groups complaints by category and status and feedback by
// category and rating.
func Aggregate(complaints []models.Complaint, feedback []models.Feedback) Summary {
	byCategory := newCounter()
	byStatus := newCounter()
	for _, c := range complaints {
		byCategory.add(orDefault(string(c.Category), config.DefaultCategory))
		byStatus.add(orDefault(string(c.Status), config.UnknownStatus))
	}

	feedbackByCategory := newCounter()
	ratings := make([]Bucket, 0, config.MaxRating-config.MinRating+1)
	for r := config.MinRating; r <= config.MaxRating; r++ {
		ratings = append(ratings, Bucket{Key: RatingKey(r)})
	}

	sum, rated := 0, 0
	for _, f := range feedback {
		feedbackByCategory.add(orDefault(f.Category, config.DefaultCategory))
		if !f.HasValidRating(config.MinRating, config.MaxRating) {
			continue
		}
		ratings[*f.Rating-config.MinRating].Count++
		sum += *f.Rating
		rated++
	}

	avg := 0.0
	if rated > 0 {
		avg = math.Round(float64(sum)/float64(rated)*100) / 100
	}

	return Summary{
		Total:              len(complaints),
		ByCategory:         byCategory.buckets,
		ByStatus:           byStatus.buckets,
		FeedbackTotal:      len(feedback),
		FeedbackByCategory: feedbackByCategory.buckets,
		FeedbackByRating:   ratings,
		FeedbackAvgRating:  avg,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Service computes summaries from the record store.
type Service struct {
	Storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// Summary fetches both collections and aggregates them. Failing to fetch
// either one fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	complaints, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{})
	if err != nil {
		return nil, errs.Unexpected("failed to fetch complaints", err)
	}
	feedback, err := s.Storage.ListFeedback(ctx)
	if err != nil {
		return nil, errs.Unexpected("failed to fetch feedback", err)
	}

	summary := Aggregate(complaints, feedback)
	return &summary, nil
}
