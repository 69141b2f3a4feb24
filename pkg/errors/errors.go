package errors

import (
	"errors"
	"sort"
	"strings"
)

// ── 错误类别 ──
// 业务错误通过 Unwrap 归入以下类别之一，由 Handler 层统一映射为 HTTP 状态码

var (
	// ErrValidation 请求数据未通过校验
	ErrValidation = errors.New("数据校验失败")
	// ErrPermissionDenied 角色、归属或状态守卫不允许该操作
	ErrPermissionDenied = errors.New("无权限执行该操作")
	// ErrNotFound 记录不存在或对当前用户不可见
	ErrNotFound = errors.New("记录不存在")
	// ErrInvalidTransition 当前状态不允许该审核流转
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
	// ErrIntegrityConflict 主键冲突且自动重分配失败
	ErrIntegrityConflict = errors.New("数据冲突，请稍后重试")
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
)

// kindError 携带可读提示并归属某一错误类别
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Denied 构造一个权限类错误
func Denied(msg string) error { return &kindError{kind: ErrPermissionDenied, msg: msg} }

// Transition 构造一个状态流转类错误
func Transition(msg string) error { return &kindError{kind: ErrInvalidTransition, msg: msg} }

// NotFound 构造一个记录不存在类错误
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// ── 字段级校验错误 ──

// ValidationError 按字段聚合的校验错误，调用方可逐字段渲染
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError 创建空的校验错误集合
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError 创建只含单个字段的校验错误
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// Add 追加一个字段错误
func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

// Has 字段是否已有错误（用于同字段短路）
func (v *ValidationError) Has(field string) bool {
	return len(v.Fields[field]) > 0
}

// Merge 合并另一个校验错误
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		v.Fields[field] = append(v.Fields[field], msgs...)
	}
}

// Empty 是否没有任何错误
func (v *ValidationError) Empty() bool {
	return len(v.Fields) == 0
}

// OrNil 无错误时返回 nil，避免返回类型化的 nil 接口
func (v *ValidationError) OrNil() error {
	if v == nil || v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for f := range v.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v.Fields[f], "; "))
	}
	return strings.Join(parts, " | ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// AsValidation 提取字段级校验错误
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
