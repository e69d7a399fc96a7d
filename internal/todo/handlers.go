package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// Handler 处理 /todos 下的 HTTP 请求
type Handler struct {
	service *Service
	syncer  *Syncer
	logger  *log.Logger
}

func NewHandler(service *Service, syncer *Syncer, logger *log.Logger) *Handler {
	return &Handler{
		service: service,
		syncer:  syncer,
		logger:  logger,
	}
}

// Routes 注册 /todos 下的路由，由上层 router 挂载
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.handleListTodos)
	r.Post("/", h.handleCreateTodo)
	r.Post("/sync", h.handleSyncTodos)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetTodo)
		r.Put("/", h.handleUpdateTodo)
		r.Delete("/", h.handleDeleteTodo)
	})

	return r
}

func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	// 列表查询：过滤、排序、可选分页
	query := ParseListQuery(r.URL.Query())
	result, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.Error("list todos", "err", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load todos")
		return
	}

	if !result.Paginated() {
		h.writeJSON(w, http.StatusOK, result.Todos)
		return
	}

	page := result.Pagination
	h.writeJSON(w, http.StatusOK, pageEnvelope{
		Data:       result.Todos,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	// 单条查询
	id, err := readIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	todo, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to load todo")
		return
	}

	h.writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	// 创建资源
	var input createTodoRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := h.service.Create(r.Context(), input.UserID, input.Title, input.Completed)
	if err != nil {
		h.writeServiceError(w, err, "failed to create todo")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/todos/%d", todo.ID))
	h.writeJSON(w, http.StatusCreated, todo)
}

func (h *Handler) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	// 更新完成状态
	id, err := readIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input updateTodoRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if input.Completed == nil {
		h.writeError(w, http.StatusBadRequest, "completed is required")
		return
	}

	todo, err := h.service.UpdateCompleted(r.Context(), id, *input.Completed)
	if err != nil {
		h.writeServiceError(w, err, "failed to update todo")
		return
	}

	h.writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	// 删除资源
	id, err := readIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to delete todo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSyncTodos(w http.ResponseWriter, r *http.Request) {
	// 从外部数据源全量替换，失败细节只写日志
	count, err := h.syncer.Sync(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, syncResponse{
			Message: "internal error while synchronizing todos",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, syncResponse{
		Message: "synchronization completed successfully",
		Count:   count,
	})
}

// writeServiceError 将领域错误映射为 HTTP 状态码
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		limitErr      *LimitExceededError
	)
	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		h.writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &limitErr):
		h.writeError(w, http.StatusBadRequest, limitErr.Error())
	default:
		h.logger.Error(fallback, "err", err)
		h.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// 限制请求体大小并严格解析 JSON
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	// 统一 JSON 响应输出
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode error", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	// 错误响应包装
	h.writeJSON(w, status, map[string]string{"error": message})
}

func readIDParam(r *http.Request) (int64, error) {
	// 解析并校验路径参数
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
