// Package models defines core data structures for purchase records, query criteria, and results.
package models

import (
	"fmt"
	"strconv"
)

// Column names a display column of a purchase record.
type Column string

const (
	ColumnItem     Column = "Item Purchased"
	ColumnColor    Column = "Color"
	ColumnCategory Column = "Category"
	ColumnGender   Column = "Gender"
	ColumnSize     Column = "Size"
	ColumnSeason   Column = "Season"
	ColumnAmount   Column = "Purchase Amount"
	ColumnRating   Column = "Review Rating"
	ColumnAge      Column = "Age"
)

// AllColumns lists every record column in source order.
var AllColumns = []Column{
	ColumnItem, ColumnColor, ColumnCategory, ColumnGender, ColumnSize,
	ColumnSeason, ColumnAmount, ColumnRating, ColumnAge,
}

// TextColumns are the columns compared as strings.
var TextColumns = []Column{
	ColumnItem, ColumnColor, ColumnCategory, ColumnGender, ColumnSize, ColumnSeason,
}

// Record is one purchase transaction.
type Record struct {
	Item     string  `json:"item_purchased"`
	Color    string  `json:"color"`
	Category string  `json:"category"`
	Gender   string  `json:"gender"`
	Size     string  `json:"size"`
	Season   string  `json:"season"`
	Amount   float64 `json:"purchase_amount"`
	Rating   float64 `json:"review_rating"`
	Age      int     `json:"age"`
}

// Text returns the raw value of a text column, or "" for numeric columns.
func (r Record) Text(c Column) string {
	switch c {
	case ColumnItem:
		return r.Item
	case ColumnColor:
		return r.Color
	case ColumnCategory:
		return r.Category
	case ColumnGender:
		return r.Gender
	case ColumnSize:
		return r.Size
	case ColumnSeason:
		return r.Season
	}
	return ""
}

// Value returns the display form of column c.
// Amounts use two decimals, ratings the shortest exact form.
func (r Record) Value(c Column) string {
	switch c {
	case ColumnAmount:
		return fmt.Sprintf("%.2f", r.Amount)
	case ColumnRating:
		return strconv.FormatFloat(r.Rating, 'f', -1, 64)
	case ColumnAge:
		return strconv.Itoa(r.Age)
	}
	return r.Text(c)
}
