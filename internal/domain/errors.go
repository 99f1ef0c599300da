package domain

import (
	"errors"
	"fmt"
)

// ValidationError 输入校验失败（HTTP 400）
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError 创建校验错误
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthError 认证/授权失败
// Forbidden=false 表示身份无法确认（401），true 表示身份已知但无权操作（403）
type AuthError struct {
	Reason    string
	Forbidden bool
}

func (e *AuthError) Error() string { return e.Reason }

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = &AuthError{Reason: "invalid username or password"}

// NewForbiddenError 创建无权限错误
func NewForbiddenError(reason string) error {
	return &AuthError{Reason: reason, Forbidden: true}
}

// NotFoundError 目标记录不存在（HTTP 404）
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFoundError 创建不存在错误
func NewNotFoundError(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// DuplicateError 唯一性冲突（HTTP 409）
type DuplicateError struct {
	Entity string
	Reason string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Entity, e.Reason)
}

// ErrDuplicateVote 同一用户在同一投票中重复投票
var ErrDuplicateVote = &DuplicateError{Entity: "vote", Reason: "user has already voted in this poll"}

// IsNotFound 判断错误链中是否包含 NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
