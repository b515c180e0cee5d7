// Package web holds the HTML views.
package web

import (
	"embed"
	"html/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses every view with the helper functions installed.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templatesFS, "templates/*.html")
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"usd": USD,
	}
}

// USD formats an amount as dollars, e.g. $1,234.56.
func USD(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	cents := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(cents.IntPart())
}
