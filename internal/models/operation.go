package models

import "strings"

// Operation names one of the query operations.
type Operation string

const (
	OpColorCategory  Operation = "color-category"
	OpItemPrice      Operation = "item-price"
	OpGenderCategory Operation = "gender-category"
	OpItemSize       Operation = "item-size"
	OpItemRating     Operation = "item-rating"
	OpItemAge        Operation = "item-age"
	OpCategory       Operation = "category"
	OpSeason         Operation = "season"
	OpColorName      Operation = "color-name"
	OpCriteria       Operation = "criteria"
)

// Operations lists every operation in display order.
var Operations = []Operation{
	OpColorCategory, OpItemPrice, OpGenderCategory, OpItemSize, OpItemRating,
	OpItemAge, OpCategory, OpSeason, OpColorName, OpCriteria,
}

// ParseOperation returns the operation named s (case-insensitive).
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", NewValidationError("operation", "Unknown operation '"+s+"'.")
}
