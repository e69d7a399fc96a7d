package todo

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"todo_api/internal/database"
	"todo_api/internal/logging"
)

const defaultTestTimeout = 5 * time.Second

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todos.db")
	db, dialect, err := database.Open("sqlite", path, logging.Discard())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, dialect)
}

func seed(t *testing.T, store *Store, todos ...Todo) {
	t.Helper()
	if err := store.ReplaceAll(context.Background(), todos); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func newTestService(t *testing.T) (*Service, *Store) {
	t.Helper()
	store := newTestStore(t)
	limiter := NewLimiter(store, MaxIncompletePerUser)
	return NewService(store, limiter, logging.Discard()), store
}

type stubSource struct {
	todos []Todo
	err   error
	calls int
	block chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context) ([]Todo, error) {
	s.calls++
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.todos, s.err
}

func newTestRouter(t *testing.T, source Source) (http.Handler, *Store) {
	t.Helper()
	service, store := newTestService(t)
	syncer := NewSyncer(store, source, defaultTestTimeout, logging.Discard())
	handler := NewHandler(service, syncer, logging.Discard())

	r := chi.NewRouter()
	r.Mount("/todos", handler.Routes())
	return r, store
}

// 三条基础数据，与集成测试场景一致
func sampleTodos() []Todo {
	return []Todo{
		{ID: 1, UserID: 1, Title: "Test Todo 1", Completed: true},
		{ID: 2, UserID: 1, Title: "Test Todo 2", Completed: true},
		{ID: 3, UserID: 2, Title: "Test Todo 3", Completed: false},
	}
}

func incompleteFor(userID int64, n int, firstID int64) []Todo {
	todos := make([]Todo, 0, n)
	for i := 0; i < n; i++ {
		todos = append(todos, Todo{ID: firstID + int64(i), UserID: userID, Title: "open task", Completed: false})
	}
	return todos
}
