package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"todo_api/internal/database"
	"todo_api/internal/logging"
)

type stubQuota struct {
	counts map[int64]int
}

func (s stubQuota) Incomplete(ctx context.Context, userID int64) (int, error) {
	return s.counts[userID], nil
}

func (s stubQuota) Limit() int { return 5 }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, dialect, err := database.Open("sqlite", filepath.Join(t.TempDir(), "stats.db"), logging.Discard())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO todos (id, user_id, title, completed) VALUES
			(1, 1, 'a', 1),
			(2, 1, 'b', 0),
			(3, 2, 'c', 0),
			(4, 3, 'd', 1)
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	quota := stubQuota{counts: map[int64]int{1: 1, 2: 5}}
	return NewHandler(NewStore(db), quota, logging.Discard()).Routes()
}

func TestStatsSummary(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var got Summary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Summary{Total: 4, Completed: 2, Incomplete: 2, Users: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestUserQuota(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		path   string
		status int
		want   UserQuota
	}{
		{"/users/1", http.StatusOK, UserQuota{UserID: 1, Incomplete: 1, Limit: 5, Remaining: 4}},
		{"/users/2", http.StatusOK, UserQuota{UserID: 2, Incomplete: 5, Limit: 5, Remaining: 0}},
		{"/users/9", http.StatusOK, UserQuota{UserID: 9, Incomplete: 0, Limit: 5, Remaining: 5}},
		{"/users/abc", http.StatusBadRequest, UserQuota{}},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.status {
			t.Fatalf("%s: unexpected status %d", tt.path, rec.Code)
		}
		if tt.status != http.StatusOK {
			continue
		}
		var got UserQuota
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %#v want %#v", tt.path, got, tt.want)
		}
	}
}
