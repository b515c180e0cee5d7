package service

import (
	"net/http"
	"strconv"
	"strings"
)

// Check is the outcome of validating one form field.
type Check struct {
	Field  string
	Reason string
}

func (c Check) OK() bool {
	return c.Reason == ""
}

// Field pairs a form field name with its submitted value.
type Field struct {
	Name  string
	Value string
}

// Require reports the first field that is empty.
func Require(fields ...Field) Check {
	for _, f := range fields {
		if f.Value == "" {
			return Check{Field: f.Name, Reason: "must provide " + f.Name}
		}
	}
	return Check{}
}

// ParseShares accepts a positive whole number written only with digits.
func ParseShares(raw string) (int64, Check) {
	bad := Check{Field: "shares", Reason: "Invalid number of shares"}
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, bad
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, bad
	}
	return n, Check{}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (c Check) err(code int) *Error {
	return newError(KindValidation, code, c.Reason)
}

func missing(c Check) *Error {
	return c.err(http.StatusForbidden)
}
