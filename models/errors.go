package models

import (
	"errors"
	"fmt"
)

// 核心操作的錯誤分類
// 所有會中止交易的錯誤都必須屬於其中一類，api 層再對應到 HTTP 狀態碼
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// DomainError 帶著具體訊息的分類錯誤
// Message 描述被違反的前置條件，Kind 是上面其中一個 sentinel
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Errorf 建立一個指定分類的 DomainError
func Errorf(kind error, format string, args ...any) error {
	return &DomainError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}
