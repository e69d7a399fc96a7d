package todo

// Todo 唯一的实体：归属用户、标题与完成状态
type Todo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// createTodoRequest 接受完整记录形状，id 由数据库分配，传入值忽略
type createTodoRequest struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type updateTodoRequest struct {
	Completed *bool `json:"completed"`
}

// Pagination is present on a ListResult only when the caller asked for a page.
type Pagination struct {
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// ListResult is either a plain list or a single page with its metadata.
type ListResult struct {
	Todos      []Todo
	Pagination *Pagination
}

func (r ListResult) Paginated() bool {
	return r.Pagination != nil
}

type pageEnvelope struct {
	Data       []Todo `json:"data"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalCount int    `json:"totalCount"`
	TotalPages int    `json:"totalPages"`
}

type syncResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
