package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// UserQuota reports how close a user is to the incomplete-todo cap.
type UserQuota struct {
	UserID     int64 `json:"userId"`
	Incomplete int   `json:"incomplete"`
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
}

type quotaSource interface {
	Incomplete(ctx context.Context, userID int64) (int, error)
	Limit() int
}

type Handler struct {
	store  *Store
	quota  quotaSource
	logger *log.Logger
}

func NewHandler(store *Store, quota quotaSource, logger *log.Logger) *Handler {
	return &Handler{
		store:  store,
		quota:  quota,
		logger: logger,
	}
}

func (h *Handler) Routes() http.Handler {
	// 注册路由，由上层 router 挂载到 /stats
	r := chi.NewRouter()
	r.Get("/", h.handleStats)
	r.Get("/users/{userId}", h.handleUserQuota)
	return r
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	// 统计汇总
	summary, err := h.store.Summary(r.Context())
	if err != nil {
		h.logger.Error("load stats", "err", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleUserQuota(w http.ResponseWriter, r *http.Request) {
	// 单个用户的未完成数量与剩余额度
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	incomplete, err := h.quota.Incomplete(r.Context(), userID)
	if err != nil {
		h.logger.Error("load user quota", "user_id", userID, "err", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	limit := h.quota.Limit()
	h.writeJSON(w, http.StatusOK, UserQuota{
		UserID:     userID,
		Incomplete: incomplete,
		Limit:      limit,
		Remaining:  max(0, limit-incomplete),
	})
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
