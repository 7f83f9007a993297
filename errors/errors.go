package errors

import (
	"errors"
	"fmt"
)

type CodeError struct {
	Code    int
	Message string
	Err     error
}

// Error 返回带错误码的可读文本（用于日志与调用侧错误描述）。
func (e *CodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
}

// Unwrap 返回底层错误，便于 errors.Is/errors.As 继续判断。
func (e *CodeError) Unwrap() error { return e.Err }

// Is 按错误码匹配另一个 CodeError，使包级哨兵错误可直接用于 errors.Is。
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New 构造一个仅包含错误码与消息的 CodeError。
// 参数：
// - code: 错误码
// - msg: 错误描述
func New(code int, msg string) *CodeError { return &CodeError{Code: code, Message: msg} }

// Wrap 将底层错误包装为带错误码的 CodeError。
// 参数：
// - code: 错误码
// - msg: 错误描述
// - err: 底层错误（可为 nil）
func Wrap(code int, msg string, err error) *CodeError {
	return &CodeError{Code: code, Message: msg, Err: err}
}

// WithMessage 为错误追加上下文消息。
// 规则：
// - 若 err 为 CodeError，则保留 code，仅替换 message 并保留底层 err
// - 否则使用 fmt.Errorf("%s: %w", ...) 保留可追溯性
func WithMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return &CodeError{Code: ce.Code, Message: msg, Err: ce.Err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Code 提取错误码。
// 返回：
// - 0: err 为 nil
// - CodeError: 返回其中的 Code
// - 其它错误: 默认返回 CodeInternal
func Code(err error) int {
	if err == nil {
		return 0
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

const (
	CodeInternal   = 500
	CodeBadRequest = 502

	// 缓冲池调用方错误
	CodeNotInitialized = 510
	CodeInvalidSize    = 511
	CodeCopyOverflow   = 512
)
