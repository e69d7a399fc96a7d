package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo_api/internal/database"
)

type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	// 数据访问层封装
	return &Store{db: db, dialect: dialect}
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Todo, error) {
	// 按查询计划过滤、排序并分页
	plan := buildPlan(q, s.dialect)
	rows, err := s.db.QueryContext(ctx, plan.selectSQL(), plan.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		var todo Todo
		if err := rows.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

// Count returns the number of records matching q's filters, ignoring paging.
func (s *Store) Count(ctx context.Context, q ListQuery) (int, error) {
	plan := buildPlan(q, s.dialect)
	var total int
	if err := s.db.QueryRowContext(ctx, plan.countSQL(), plan.whereArgs...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Todo, error) {
	// 按 ID 查询
	var todo Todo
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT id, user_id, title, completed
		FROM todos
		WHERE id = $1
	`), id)
	if err := row.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed); err != nil {
		return Todo{}, err
	}
	return todo, nil
}

func (s *Store) Create(ctx context.Context, userID int64, title string, completed bool) (Todo, error) {
	// 新建 todo，ID 由数据库分配
	var todo Todo
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO todos (user_id, title, completed)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, completed
	`), userID, title, completed)
	if err := row.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed); err != nil {
		return Todo{}, err
	}
	return todo, nil
}

func (s *Store) SetCompleted(ctx context.Context, id int64, completed bool) (Todo, error) {
	// 只允许修改完成状态
	var todo Todo
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		UPDATE todos
		SET completed = $1
		WHERE id = $2
		RETURNING id, user_id, title, completed
	`), completed, id)
	if err := row.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed); err != nil {
		return Todo{}, err
	}
	return todo, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	// 删除 todo
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		DELETE FROM todos
		WHERE id = $1
	`), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountIncomplete uses the (user_id, completed) index.
func (s *Store) CountIncomplete(ctx context.Context, userID int64) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT COUNT(*)
		FROM todos
		WHERE user_id = $1 AND completed = $2
	`), userID, false)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ReplaceAll deletes every record and inserts todos in one transaction.
// Readers see either the old set or the new one, never an empty table.
func (s *Store) ReplaceAll(ctx context.Context, todos []Todo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM todos`); err != nil {
		return fmt.Errorf("delete existing: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(`
		INSERT INTO todos (id, user_id, title, completed)
		VALUES ($1, $2, $3, $4)
	`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, todo := range todos {
		if _, err := stmt.ExecContext(ctx, todo.ID, todo.UserID, todo.Title, todo.Completed); err != nil {
			return fmt.Errorf("insert todo %d: %w", todo.ID, err)
		}
	}

	if err := database.ResetSequence(ctx, tx, s.dialect); err != nil {
		return fmt.Errorf("reset id sequence: %w", err)
	}

	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
