package dataset

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
)

var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"INR": "₹",
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// resolveHeader maps each required column to the header name used by the source.
// The amount column matches any header starting with "Purchase Amount"; a currency
// code in parentheses after it, e.g. "Purchase Amount (GBP)", sets the currency.
func resolveHeader(names []string) (map[models.Column]string, string, error) {
	cols := make(map[models.Column]string, len(models.AllColumns))
	currency := ""
	amountPrefix := normalizeHeader(string(models.ColumnAmount))
	for _, name := range names {
		h := normalizeHeader(name)
		if strings.HasPrefix(h, amountPrefix) {
			if _, dup := cols[models.ColumnAmount]; !dup {
				cols[models.ColumnAmount] = name
				currency = currencyFromHeader(name)
			}
			continue
		}
		for _, c := range models.AllColumns {
			if h == normalizeHeader(string(c)) {
				if _, dup := cols[c]; !dup {
					cols[c] = name
				}
				break
			}
		}
	}

	var missing []string
	for _, c := range models.AllColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, currency, nil
}

func currencyFromHeader(name string) string {
	open := strings.LastIndexByte(name, '(')
	end := strings.LastIndexByte(name, ')')
	if open < 0 || end <= open+1 {
		return ""
	}
	code := strings.ToUpper(strings.TrimSpace(name[open+1 : end]))
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code + " "
}
