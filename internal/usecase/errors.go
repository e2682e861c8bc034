package usecase

import (
	"errors"
	"fmt"
)

// usecase層のエラーはHTTPステータスと人間が読める理由を持って上に返す。
// 404: 参照先（ユーザー・商品・明細・ステータス）が存在しない/所有していない。
// 400: 業務ルール違反（cart empty / shipping country not supported / missing shipping address）。
// 500: 永続化の失敗。トランザクションは全ロールバック済みなので再実行は安全。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
