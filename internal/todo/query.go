package todo

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"todo_api/internal/database"
)

// SortKey 列表排序字段，未知值按 id 处理
type SortKey string

const (
	SortByID        SortKey = "id"
	SortByTitle     SortKey = "title"
	SortByUserID    SortKey = "userId"
	SortByCompleted SortKey = "completed"
)

// DefaultPageSize 在 pageSize 小于 1 时使用
const DefaultPageSize = 10

var sortColumns = map[SortKey]string{
	SortByID:        "id",
	SortByTitle:     "title",
	SortByUserID:    "user_id",
	SortByCompleted: "completed",
}

// ListQuery 列表请求的过滤、排序与分页参数，Page 和 PageSize 仅在 Paginate 为 true 时有效
type ListQuery struct {
	Title     string
	Completed *bool
	Sort      SortKey
	Desc      bool
	Paginate  bool
	Page      int
	PageSize  int
}

// ParseListQuery never fails: unknown or malformed values fall back to
// defaults.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{
		Title: values.Get("title"),
		Sort:  ParseSortKey(values.Get("sort")),
		Desc:  strings.EqualFold(strings.TrimSpace(values.Get("order")), "desc"),
	}

	if raw := strings.TrimSpace(values.Get("completed")); raw != "" {
		if completed, err := strconv.ParseBool(raw); err == nil {
			q.Completed = &completed
		}
	}

	page, pageOK := parseInt(values.Get("page"))
	size, sizeOK := parseInt(values.Get("pageSize"))
	if pageOK && sizeOK {
		q.Paginate = true
		q.Page = page
		q.PageSize = size
	}

	return q.normalize()
}

func ParseSortKey(raw string) SortKey {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "title":
		return SortByTitle
	case "userid":
		return SortByUserID
	case "completed":
		return SortByCompleted
	default:
		return SortByID
	}
}

func (q ListQuery) normalize() ListQuery {
	if _, ok := sortColumns[q.Sort]; !ok {
		q.Sort = SortByID
	}
	if !q.Paginate {
		q.Page, q.PageSize = 0, 0
		return q
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Offset is the number of filtered records preceding the requested page.
func (q ListQuery) Offset() int {
	if !q.Paginate {
		return 0
	}
	// 超大页码时封顶，避免溢出
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

func newPagination(q ListQuery, total int) *Pagination {
	return &Pagination{
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: total,
		TotalPages: totalPages(total, q.PageSize),
	}
}

func totalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}

// queryPlan is the SQL rendering of a ListQuery for one dialect.
type queryPlan struct {
	where     string
	whereArgs []any
	orderBy   string
	limit     string
	args      []any
}

func (p queryPlan) selectSQL() string {
	return "SELECT id, user_id, title, completed FROM todos" + p.where + p.orderBy + p.limit
}

func (p queryPlan) countSQL() string {
	return "SELECT COUNT(*) FROM todos" + p.where
}

func buildPlan(q ListQuery, dialect database.Dialect) queryPlan {
	q = q.normalize()

	var (
		conds []string
		args  []any
	)
	// 按参数顺序生成占位符
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Title != "" {
		conds = append(conds, dialect.Contains("title", next(q.Title)))
	}
	if q.Completed != nil {
		conds = append(conds, "completed = "+next(*q.Completed))
	}

	var plan queryPlan
	if len(conds) > 0 {
		plan.where = " WHERE " + strings.Join(conds, " AND ")
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	column := sortColumns[q.Sort]
	if column == "id" {
		plan.orderBy = fmt.Sprintf(" ORDER BY id %s", direction)
	} else {
		plan.orderBy = fmt.Sprintf(" ORDER BY %s %s, id ASC", column, direction)
	}

	plan.whereArgs = append([]any(nil), args...)
	if q.Paginate {
		plan.limit = fmt.Sprintf(" LIMIT %s OFFSET %s", next(q.PageSize), next(q.Offset()))
	}
	plan.args = args

	plan.where = dialect.Rebind(plan.where)
	plan.limit = dialect.Rebind(plan.limit)
	return plan
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
