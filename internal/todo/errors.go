package todo

import "fmt"

// ValidationError reports bad input content, such as an empty title.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NotFoundError 指定 id 的 todo 不存在
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return "todo not found"
}

// LimitExceededError is the expected rejection when a user already holds the
// maximum number of incomplete todos.
type LimitExceededError struct {
	UserID int64
	Limit  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("user %d already has the maximum of %d incomplete todos; complete one before adding or reopening another", e.UserID, e.Limit)
}

// SyncError wraps any failure of the external fetch or the bulk replace.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
