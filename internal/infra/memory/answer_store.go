package memory

import (
	"context"
	"sync"

	"pyquest-backend/internal/domain"
)

type answerKey struct {
	userID     string
	questionID string
}

// AnswerStore is an in-memory implementation of app.AnswerStore. A single
// mutex around the map gives the same increment-on-conflict guarantee the
// postgres store gets from ON CONFLICT DO UPDATE.
type AnswerStore struct {
	mu      sync.RWMutex
	records map[answerKey]domain.AnswerRecord
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{records: make(map[answerKey]domain.AnswerRecord)}
}

func (s *AnswerStore) Upsert(_ context.Context, record domain.AnswerRecord) error {
	key := answerKey{userID: record.UserID, questionID: record.QuestionID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok {
		record.RetryCount = existing.RetryCount + 1
	} else {
		record.RetryCount = 0
	}
	s.records[key] = record
	return nil
}

func (s *AnswerStore) RetryCount(_ context.Context, userID, questionID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[answerKey{userID: userID, questionID: questionID}]
	if !ok {
		return 0, false, nil
	}
	return record.RetryCount, true, nil
}

// Get returns the stored record for a pair, for tests and demos.
func (s *AnswerStore) Get(userID, questionID string) (domain.AnswerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[answerKey{userID: userID, questionID: questionID}]
	return record, ok
}

// Len reports how many distinct (user, question) records exist.
func (s *AnswerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
