package stats

import (
	"context"
	"database/sql"
)

type Summary struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Incomplete int64 `json:"incomplete"`
	Users      int64 `json:"users"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	// 数据访问层封装
	return &Store{db: db}
}

func (s *Store) Summary(ctx context.Context) (Summary, error) {
	// 汇总 todo 统计信息
	var summary Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed,
			COUNT(DISTINCT user_id) AS users
		FROM todos
	`)
	if err := row.Scan(&summary.Total, &summary.Completed, &summary.Users); err != nil {
		return Summary{}, err
	}
	summary.Incomplete = summary.Total - summary.Completed
	return summary, nil
}
