package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsBlast/internal/models"
)

// MemoryStore keeps newsletters in memory. It serves tests and
// single-process deployments without a database.
type MemoryStore struct {
	mu          sync.Mutex
	newsletters map[string]*models.Newsletter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{newsletters: make(map[string]*models.Newsletter)}
}

func (s *MemoryStore) Create(_ context.Context, subject, htmlContent string) (*models.Newsletter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	n := &models.Newsletter{
		ID:          uuid.NewString(),
		Subject:     subject,
		HTMLContent: htmlContent,
		Status:      models.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.newsletters[n.ID] = n
	return cloneNewsletter(n), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Newsletter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.newsletters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNewsletter(n), nil
}

func (s *MemoryStore) RecordChunk(_ context.Context, id string, cr models.ChunkResult, round Round) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.newsletters[id]
	if !ok {
		return Progress{}, ErrNotFound
	}

	p := Apply(n, cr, round)
	n.UpdatedAt = time.Now().UTC()
	return p, nil
}

func (s *MemoryStore) FailedRecipients(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.newsletters[id]
	if !ok {
		return nil, ErrNotFound
	}
	if n.SendingState == nil {
		return nil, nil
	}
	return n.SendingState.FailedEmails(), nil
}

func cloneNewsletter(n *models.Newsletter) *models.Newsletter {
	out := *n
	if n.SendingState != nil {
		st := *n.SendingState
		st.ChunkResults = cloneResults(n.SendingState.ChunkResults)
		st.PriorResults = cloneResults(n.SendingState.PriorResults)
		out.SendingState = &st
	}
	return &out
}

func cloneResults(in []models.ChunkResult) []models.ChunkResult {
	if in == nil {
		return nil
	}
	out := make([]models.ChunkResult, len(in))
	for i, cr := range in {
		cr.Results = append([]models.RecipientOutcome(nil), cr.Results...)
		out[i] = cr
	}
	return out
}
