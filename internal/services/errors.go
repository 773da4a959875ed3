package services

import (
	"errors"
	"fmt"
)

// 错误类型，可配合 errors.Is 使用
var (
	ErrValidation = errors.New("validation error")
	ErrProvider   = errors.New("provider error")
	ErrInternal   = errors.New("internal error")
)

// RelayError 对话中转错误
type RelayError struct {
	Kind    error  // ErrValidation/ErrProvider/ErrInternal
	Message string // 可返回给调用方的说明
	Err     error  // 原始错误，仅用于日志
}

func (e *RelayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is 让 errors.Is(err, ErrProvider) 等判断生效
func (e *RelayError) Is(target error) bool {
	return e.Kind == target
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

func validationError(msg string) *RelayError {
	return &RelayError{Kind: ErrValidation, Message: msg}
}

func providerError(msg string, err error) *RelayError {
	return &RelayError{Kind: ErrProvider, Message: msg, Err: err}
}

func internalError(msg string, err error) *RelayError {
	return &RelayError{Kind: ErrInternal, Message: msg, Err: err}
}
