package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/kaiseki/internal/model"
)

// RecordAnalysis appends one row to the analysis history. Only headline
// metrics are stored; the submitted code never touches the index.
func (s *Store) RecordAnalysis(ctx context.Context, codeSize int, a model.Analysis) (model.AnalysisRecord, error) {
	rec := model.AnalysisRecord{
		ID:              uuid.New(),
		Success:         a.Success,
		ExecutionTime:   a.ExecutionTime,
		MemoryUsed:      a.MemoryUsed,
		TimeComplexity:  a.TimeComplexity,
		SpaceComplexity: a.SpaceComplexity,
		CodeSizeBytes:   int64(codeSize),
		CreatedAt:       s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO analyses (id, success, execution_time, memory_used, time_complexity, space_complexity, code_size_bytes, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), boolToInt(rec.Success), rec.ExecutionTime, rec.MemoryUsed,
		rec.TimeComplexity, rec.SpaceComplexity, rec.CodeSizeBytes,
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("storage: record analysis: %w", err)
	}
	return rec, nil
}

// ListAnalyses returns analysis history rows newest first, capped at limit.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, success, execution_time, memory_used, time_complexity, space_complexity, code_size_bytes, created_at_utc
FROM analyses
ORDER BY created_at_utc DESC, id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list analyses: %w", err)
	}
	defer rows.Close()

	out := []model.AnalysisRecord{}
	for rows.Next() {
		var (
			rec       model.AnalysisRecord
			id        string
			success   int
			createdAt string
		)
		if err := rows.Scan(&id, &success, &rec.ExecutionTime, &rec.MemoryUsed,
			&rec.TimeComplexity, &rec.SpaceComplexity, &rec.CodeSizeBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: scan analysis row: %w", err)
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("storage: bad analysis id %q: %w", id, err)
		}
		rec.Success = success != 0
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("storage: bad analysis timestamp %q: %w", createdAt, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
