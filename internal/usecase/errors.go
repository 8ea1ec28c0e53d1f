package usecase

import (
	"errors"
	"fmt"
	"strings"
)

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//401 未ログイン
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	// カート追加時に在庫より多い
	ErrInsufficientStock = errors.New("insufficient stock")
	// 空のカートで注文
	ErrEmptyCart = errors.New("cart is empty")
)

// 在庫が足りなかった明細
type OversoldLine struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

// 注文確定時に在庫が足りなかった。何もコミットされていない
type OversoldError struct {
	Lines []OversoldLine
}

func (e *OversoldError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("product %d: requested %d, available %d", l.ProductID, l.Requested, l.Available))
	}
	return "oversold: " + strings.Join(parts, "; ")
}

// 画面に出すメッセージ
func (e *OversoldError) UserMessage() string {
	names := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("#%d", l.ProductID)
		}
		names = append(names, fmt.Sprintf("%s (requested %d, available %d)", name, l.Requested, l.Available))
	}
	return "not enough stock: " + strings.Join(names, ", ")
}

func AsOversold(err error) (*OversoldError, bool) {
	var oe *OversoldError
	ok := errors.As(err, &oe)
	return oe, ok
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
