package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/govaluate"
)

// ErrInvalidLifetime 有效期表达式非法
var ErrInvalidLifetime = errors.New("auth: invalid lifetime expression")

// 一年
const maxLifetimeSeconds = 366 * 24 * 60 * 60

// ParseLifetime 解析有效期, 支持秒数或乘法表达式, 如 "24 * 60 * 60".
// 只允许数字、空白、'*' 和括号; 字符校验在求值之前.
func ParseLifetime(expr string) (d time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = 0, fmt.Errorf("%w: %v", ErrInvalidLifetime, r)
		}
	}()

	expr = strings.TrimSpace(expr)
	if expr == "" || strings.Contains(expr, "**") {
		return 0, ErrInvalidLifetime
	}
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
		case r == '*', r == '(', r == ')':
		case r == ' ', r == '\t', r == '\n', r == '\r':
		default:
			return 0, ErrInvalidLifetime
		}
	}

	expression, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLifetime, err)
	}
	result, err := expression.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidLifetime, err)
	}

	seconds, ok := result.(float64)
	if !ok || seconds < 1 || seconds > maxLifetimeSeconds || seconds != float64(int64(seconds)) {
		return 0, ErrInvalidLifetime
	}
	return time.Duration(int64(seconds)) * time.Second, nil
}
