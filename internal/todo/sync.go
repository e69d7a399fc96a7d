package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/singleflight"
)

const maxSyncBodyBytes = 10 << 20

// Source supplies a full snapshot of todos from outside the service.
type Source interface {
	Fetch(ctx context.Context) ([]Todo, error)
}

const snapshotSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "userId", "title", "completed"],
		"properties": {
			"id": {"type": "integer", "minimum": 1},
			"userId": {"type": "integer"},
			"title": {"type": "string", "minLength": 1, "maxLength": 200},
			"completed": {"type": "boolean"}
		}
	}
}`

// HTTPSource fetches a JSON array of todos with a plain GET.
type HTTPSource struct {
	url    string
	client *http.Client
	schema *jsonschema.Schema
}

func NewHTTPSource(url string, timeout time.Duration) (*HTTPSource, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(snapshotSchema)); err != nil {
		return nil, fmt.Errorf("load snapshot schema: %w", err)
	}
	schema, err := compiler.Compile("snapshot.json")
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		schema: schema,
	}, nil
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]Todo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, h.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSyncBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxSyncBodyBytes {
		return nil, errors.New("response body too large")
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if err := h.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	var todos []Todo
	if err := json.Unmarshal(body, &todos); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	return todos, nil
}

// Syncer replaces the store contents with a snapshot from a Source.
type Syncer struct {
	store   *Store
	source  Source
	timeout time.Duration
	logger  *log.Logger
	group   singleflight.Group
}

func NewSyncer(store *Store, source Source, timeout time.Duration, logger *log.Logger) *Syncer {
	return &Syncer{
		store:   store,
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

// Sync returns the number of records loaded. Concurrent callers share a
// single run and its result. The shared run is detached from any one
// caller's cancellation and bounded by the syncer timeout; each caller stops
// waiting when its own ctx ends. Existing data is only touched once the
// snapshot has been fetched and validated.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	ch := s.group.DoChan("sync", func() (any, error) {
		return s.run(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight sync")
		}
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	case <-ctx.Done():
		// 调用方放弃等待，同步本身继续执行
		return 0, &SyncError{Op: "wait", Err: ctx.Err()}
	}
}

func (s *Syncer) run(ctx context.Context) (int, error) {
	started := time.Now()
	s.logger.Info("sync started")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	todos, err := s.source.Fetch(ctx)
	if err != nil {
		syncErr := &SyncError{Op: "fetch", Err: err}
		s.logger.Error("sync failed", "op", syncErr.Op, "err", err)
		return 0, syncErr
	}

	if err := s.store.ReplaceAll(ctx, todos); err != nil {
		syncErr := &SyncError{Op: "replace", Err: err}
		s.logger.Error("sync failed", "op", syncErr.Op, "err", err)
		return 0, syncErr
	}

	s.logger.Info("sync finished", "count", len(todos), "duration", time.Since(started))
	return len(todos), nil
}
