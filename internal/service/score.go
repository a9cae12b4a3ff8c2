package service

import (
	"context"
	"fmt"
	"sync"
)

// ScoreRecord holds the persisted counters for one (user, module) pair.
// Score never exceeds Total.
type ScoreRecord struct {
	UserID int64  `json:"user_id"`
	Module string `json:"module"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
}

// ScoreStore increments and reads per-user, per-module counters. RecordAnswer must
// not lose increments under concurrent calls for the same key.
type ScoreStore interface {
	RecordAnswer(ctx context.Context, userID int64, module string, correct bool) (ScoreRecord, error)
	GetScore(ctx context.Context, userID int64, module string) (ScoreRecord, error)
}

type scoreKey struct {
	userID int64
	module string
}

// MemoryScoreStore keeps scores in process memory. Data is lost on restart.
type MemoryScoreStore struct {
	mu      sync.RWMutex
	records map[scoreKey]ScoreRecord
}

func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{records: make(map[scoreKey]ScoreRecord)}
}

func (ms *MemoryScoreStore) RecordAnswer(_ context.Context, userID int64, module string, correct bool) (ScoreRecord, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	k := scoreKey{userID: userID, module: module}
	rec, ok := ms.records[k]
	if !ok {
		rec = ScoreRecord{UserID: userID, Module: module}
	}
	rec.Total++
	if correct {
		rec.Score++
	}
	ms.records[k] = rec
	return rec, nil
}

func (ms *MemoryScoreStore) GetScore(_ context.Context, userID int64, module string) (ScoreRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.records[scoreKey{userID: userID, module: module}]
	if !ok {
		return ScoreRecord{UserID: userID, Module: module}, nil
	}
	return rec, nil
}

// UserScores returns the user's records for the given modules, skipping modules
// with no answers. Order follows modules.
func UserScores(ctx context.Context, store ScoreStore, userID int64, modules []string) ([]ScoreRecord, error) {
	var out []ScoreRecord
	for _, m := range modules {
		rec, err := store.GetScore(ctx, userID, m)
		if err != nil {
			return nil, err
		}
		if rec.Total > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Percentage is Score as a whole percent of Total, 0 when nothing was answered.
func (r ScoreRecord) Percentage() int {
	if r.Total == 0 {
		return 0
	}
	return (r.Score * 100) / r.Total
}

func (r ScoreRecord) String() string {
	return fmt.Sprintf("%d/%d", r.Score, r.Total)
}
