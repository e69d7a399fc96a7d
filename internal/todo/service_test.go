package todo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestCreateAssignsIDAndTrimsTitle(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, 7, "  write report  ", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := service.Create(ctx, 7, "review", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.ID < 1 || second.ID <= first.ID {
		t.Fatalf("unexpected ids: %d %d", first.ID, second.ID)
	}
	if first.Title != "write report" || first.UserID != 7 || first.Completed {
		t.Fatalf("unexpected todo: %#v", first)
	}

	got, err := service.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != first {
		t.Fatalf("stored todo differs: %#v vs %#v", got, first)
	}
}

func TestCreateValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n", strings.Repeat("x", 201)} {
		_, err := service.Create(ctx, 1, title, true)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("title %q: expected ValidationError, got %v", title, err)
		}
	}

	if _, err := service.Create(ctx, 1, strings.Repeat("é", 200), true); err != nil {
		t.Fatalf("200 characters should be accepted: %v", err)
	}
}

func TestCreateIncompleteCap(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	for i := 0; i < MaxIncompletePerUser; i++ {
		before, _ := store.CountIncomplete(ctx, 1)
		if _, err := service.Create(ctx, 1, "task", false); err != nil {
			t.Fatalf("create #%d: %v", i+1, err)
		}
		after, _ := store.CountIncomplete(ctx, 1)
		if after != before+1 {
			t.Fatalf("incomplete count went from %d to %d", before, after)
		}
	}

	_, err := service.Create(ctx, 1, "one too many", false)
	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
	if !strings.Contains(err.Error(), "5") {
		t.Fatalf("limit message should mention the limit: %q", err.Error())
	}

	if _, err := service.Create(ctx, 1, "already done", true); err != nil {
		t.Fatalf("completed create should bypass the cap: %v", err)
	}
	if _, err := service.Create(ctx, 2, "other user", false); err != nil {
		t.Fatalf("cap is per user: %v", err)
	}

	count, err := store.CountIncomplete(ctx, 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != MaxIncompletePerUser {
		t.Fatalf("unexpected incomplete count: %d", count)
	}
}

func TestUpdateTransitions(t *testing.T) {
	ctx := context.Background()

	// 用户 1 已有 5 条未完成，另有一条已完成（ID 10）
	atCap := append(incompleteFor(1, MaxIncompletePerUser, 1), Todo{ID: 10, UserID: 1, Title: "done", Completed: true})

	tests := []struct {
		name      string
		seed      []Todo
		id        int64
		completed bool
		wantLimit bool
	}{
		{"complete to incomplete at cap is rejected", atCap, 10, false, true},
		{"complete to incomplete below cap", append(incompleteFor(1, 4, 1), Todo{ID: 10, UserID: 1, Title: "done", Completed: true}), 10, false, false},
		{"incomplete to complete at cap", atCap, 1, true, false},
		{"complete to complete at cap", atCap, 10, true, false},
		{"incomplete to incomplete at cap", atCap, 2, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestService(t)
			seed(t, store, tt.seed...)

			before, err := service.Get(ctx, tt.id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			updated, err := service.UpdateCompleted(ctx, tt.id, tt.completed)
			if tt.wantLimit {
				var limitErr *LimitExceededError
				if !errors.As(err, &limitErr) {
					t.Fatalf("expected LimitExceededError, got %v", err)
				}
				after, err := service.Get(ctx, tt.id)
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if after != before {
					t.Fatalf("record changed after rejection: %#v", after)
				}
				return
			}

			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.Completed != tt.completed || updated.Title != before.Title || updated.UserID != before.UserID {
				t.Fatalf("unexpected update result: %#v", updated)
			}
		})
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	var notFound *NotFoundError
	if _, err := service.UpdateCompleted(ctx, 999, true); !errors.As(err, &notFound) {
		t.Fatalf("update: expected NotFoundError, got %v", err)
	}
	if err := service.Delete(ctx, 999); !errors.As(err, &notFound) {
		t.Fatalf("delete: expected NotFoundError, got %v", err)
	}
	if _, err := service.Get(ctx, 999); !errors.As(err, &notFound) {
		t.Fatalf("get: expected NotFoundError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	service, store := newTestService(t)
	seed(t, store, sampleTodos()...)
	ctx := context.Background()

	if err := service.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var notFound *NotFoundError
	if _, err := service.Get(ctx, 2); !errors.As(err, &notFound) {
		t.Fatalf("expected deleted todo to be gone, got %v", err)
	}
	if err := service.Delete(ctx, 2); !errors.As(err, &notFound) {
		t.Fatalf("second delete: expected NotFoundError, got %v", err)
	}
}

func TestConcurrentCreatesRespectCap(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Create(ctx, 42, "racy", false)
			mu.Lock()
			defer mu.Unlock()
			var limitErr *LimitExceededError
			switch {
			case err == nil:
				created++
			case errors.As(err, &limitErr):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != MaxIncompletePerUser || rejected != attempts-MaxIncompletePerUser {
		t.Fatalf("created=%d rejected=%d", created, rejected)
	}
	count, err := store.CountIncomplete(ctx, 42)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != MaxIncompletePerUser {
		t.Fatalf("unexpected incomplete count: %d", count)
	}
}

func TestCreateAfterReplaceDoesNotReuseIDs(t *testing.T) {
	service, store := newTestService(t)
	seed(t, store, sampleTodos()...)

	todo, err := service.Create(context.Background(), 1, "after sync", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if todo.ID <= 3 {
		t.Fatalf("id %d collides with seeded ids", todo.ID)
	}
}
