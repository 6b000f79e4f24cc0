package storage

import (
	"complaintdesk/backend/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memComplaint struct {
	rec models.Complaint
	seq uint64
}

type memFeedback struct {
	rec models.Feedback
	seq uint64
}

// MemoryStore is an in-process Storage for development and tests.
// Records are copied on the way in and out.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        uint64
	complaints map[string]*memComplaint
	feedback   map[string]*memFeedback
	managers   map[string]models.Manager // by email
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: make(map[string]*memComplaint),
		feedback:   make(map[string]*memFeedback),
		managers:   make(map[string]models.Manager),
	}
}

func (s *MemoryStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.AssignID()
	if _, ok := s.complaints[c.ID]; ok {
		return fmt.Errorf("insert complaint: %w", ErrDuplicate)
	}
	for _, existing := range s.complaints {
		if existing.rec.ReferenceID == c.ReferenceID {
			return fmt.Errorf("insert complaint: %w", ErrDuplicate)
		}
	}
	stampCreated(&c.CreatedAt, &c.UpdatedAt)
	s.seq++
	s.complaints[c.ID] = &memComplaint{rec: cloneComplaint(*c), seq: s.seq}
	return nil
}

func (s *MemoryStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneComplaint(e.rec)
	return &c, nil
}

func (s *MemoryStore) GetComplaintByReference(ctx context.Context, referenceID string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.complaints {
		if e.rec.ReferenceID == referenceID {
			c := cloneComplaint(e.rec)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*memComplaint, 0, len(s.complaints))
	for _, e := range s.complaints {
		if filter.Email != "" && e.rec.Customer.Email != filter.Email {
			continue
		}
		if filter.Status != "" && e.rec.Status != filter.Status {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.Complaint, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneComplaint(e.rec))
	}
	return out, nil
}

func (s *MemoryStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.complaints[c.ID]
	if !ok {
		return ErrNotFound
	}
	if e.rec.Version != c.Version {
		return ErrConflict
	}
	c.Version++
	c.CreatedAt = e.rec.CreatedAt
	e.rec = cloneComplaint(*c)
	return nil
}

func (s *MemoryStore) DeleteComplaint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.complaints[id]; !ok {
		return ErrNotFound
	}
	delete(s.complaints, id)
	return nil
}

func (s *MemoryStore) SaveFeedback(ctx context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.AssignID()
	if _, ok := s.feedback[f.ID]; ok {
		return fmt.Errorf("insert feedback: %w", ErrDuplicate)
	}
	if f.Replies == nil {
		f.Replies = []models.Reply{}
	}
	stampCreated(&f.CreatedAt, &f.UpdatedAt)
	s.seq++
	s.feedback[f.ID] = &memFeedback{rec: cloneFeedback(*f), seq: s.seq}
	return nil
}

func (s *MemoryStore) GetFeedbackByID(ctx context.Context, id string) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.feedback[id]
	if !ok {
		return nil, ErrNotFound
	}
	f := cloneFeedback(e.rec)
	return &f, nil
}

func (s *MemoryStore) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*memFeedback, 0, len(s.feedback))
	for _, e := range s.feedback {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.Feedback, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneFeedback(e.rec))
	}
	return out, nil
}

func (s *MemoryStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.feedback[f.ID]
	if !ok {
		return ErrNotFound
	}
	if e.rec.Version != f.Version {
		return ErrConflict
	}
	f.Version++
	f.CreatedAt = e.rec.CreatedAt
	e.rec = cloneFeedback(*f)
	return nil
}

func (s *MemoryStore) DeleteFeedback(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feedback[id]; !ok {
		return ErrNotFound
	}
	delete(s.feedback, id)
	return nil
}

func (s *MemoryStore) SaveManager(ctx context.Context, m *models.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.managers[m.Email]; ok {
		return fmt.Errorf("insert manager: %w", ErrDuplicate)
	}
	m.AssignID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.managers[m.Email] = *m
	return nil
}

func (s *MemoryStore) GetManagerByEmail(ctx context.Context, email string) (*models.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.managers[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func cloneComplaint(c models.Complaint) models.Complaint {
	if c.Logs != nil {
		c.Logs = append([]models.LogEntry(nil), c.Logs...)
	}
	return c
}

func cloneFeedback(f models.Feedback) models.Feedback {
	if f.Rating != nil {
		r := *f.Rating
		f.Rating = &r
	}
	if f.Replies != nil {
		f.Replies = append(make([]models.Reply, 0, len(f.Replies)), f.Replies...)
	}
	return f
}
