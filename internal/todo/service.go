package todo

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"todo_api/internal/database"
)

const maxTitleLength = 200

// Service 负责校验与未完成上限，再调用 Store 写入
type Service struct {
	store   *Store
	limiter *Limiter
	logger  *log.Logger
}

func NewService(store *Store, limiter *Limiter, logger *log.Logger) *Service {
	return &Service{
		store:   store,
		limiter: limiter,
		logger:  logger,
	}
}

// List returns the filtered and sorted todos, paginated when q asks for it.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	q = q.normalize()

	todos, err := s.store.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	if !q.Paginate {
		return ListResult{Todos: todos}, nil
	}

	total, err := s.store.Count(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Todos: todos, Pagination: newPagination(q, total)}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Todo, error) {
	todo, err := s.store.Get(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return Todo{}, &NotFoundError{ID: id}
		}
		return Todo{}, err
	}
	return todo, nil
}

func (s *Service) Create(ctx context.Context, userID int64, title string, completed bool) (Todo, error) {
	title, err := validateTitle(title)
	if err != nil {
		return Todo{}, err
	}

	unlock := s.limiter.Lock(userID)
	defer unlock()

	if !completed {
		allowed, err := s.limiter.CanCreateIncomplete(ctx, userID)
		if err != nil {
			return Todo{}, err
		}
		if !allowed {
			return Todo{}, &LimitExceededError{UserID: userID, Limit: s.limiter.Limit()}
		}
	}

	todo, err := s.store.Create(ctx, userID, title, completed)
	if err != nil {
		if database.IsConstraintViolation(err) {
			return Todo{}, &ValidationError{Field: "title", Message: "is invalid"}
		}
		return Todo{}, err
	}

	s.logger.Debug("todo created", "id", todo.ID, "user_id", todo.UserID, "completed", todo.Completed)
	return todo, nil
}

// UpdateCompleted sets the completion flag. Only a complete to incomplete
// transition is subject to the incomplete cap.
func (s *Service) UpdateCompleted(ctx context.Context, id int64, completed bool) (Todo, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}

	unlock := s.limiter.Lock(current.UserID)
	defer unlock()

	// 加锁后重新读取，避免基于过期状态判断
	current, err = s.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}

	if current.Completed && !completed {
		allowed, err := s.limiter.CanMarkIncomplete(ctx, current.UserID)
		if err != nil {
			return Todo{}, err
		}
		if !allowed {
			return Todo{}, &LimitExceededError{UserID: current.UserID, Limit: s.limiter.Limit()}
		}
	}

	todo, err := s.store.SetCompleted(ctx, id, completed)
	if err != nil {
		if isNoRows(err) {
			return Todo{}, &NotFoundError{ID: id}
		}
		return Todo{}, err
	}
	return todo, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &NotFoundError{ID: id}
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "is required"}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", &ValidationError{Field: "title", Message: "must be at most 200 characters"}
	}
	return title, nil
}
