package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

// SQLScoreStore keeps one user_scores row per (user, module). Increments are a
// single upsert statement, so concurrent writers never lose an update.
type SQLScoreStore struct {
	db *sql.DB
}

func NewSQLScoreStore(db *sql.DB) *SQLScoreStore {
	return &SQLScoreStore{db: db}
}

func (s *SQLScoreStore) RecordAnswer(ctx context.Context, userID int64, module string, correct bool) (service.ScoreRecord, error) {
	inc := 0
	if correct {
		inc = 1
	}
	rec := service.ScoreRecord{UserID: userID, Module: module}
	err := s.db.QueryRowContext(ctx, `INSERT INTO user_scores (user_id, module, score, total)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, module) DO UPDATE SET
		  score = user_scores.score + excluded.score,
		  total = user_scores.total + 1
		RETURNING score, total`,
		userID, module, inc).Scan(&rec.Score, &rec.Total)
	if err != nil {
		return service.ScoreRecord{}, errors.Wrapf(err, "record answer for user %d module %q", userID, module)
	}
	return rec, nil
}

func (s *SQLScoreStore) GetScore(ctx context.Context, userID int64, module string) (service.ScoreRecord, error) {
	rec := service.ScoreRecord{UserID: userID, Module: module}
	err := s.db.QueryRowContext(ctx, `SELECT score, total FROM user_scores WHERE user_id=$1 AND module=$2`,
		userID, module).Scan(&rec.Score, &rec.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return service.ScoreRecord{}, errors.Wrapf(err, "get score for user %d module %q", userID, module)
	}
	return rec, nil
}
