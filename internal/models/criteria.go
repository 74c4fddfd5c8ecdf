package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Band is a coarse review-rating class.
type Band string

const (
	BandHigh Band = "high"
	BandLow  Band = "low"

	// HighRatingThreshold is the lowest rating in the high band.
	HighRatingThreshold = 4.0
)

// NormalizeBand trims and lower-cases s.
func NormalizeBand(s string) Band {
	return Band(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether b names a known band after normalization.
func (b Band) Valid() bool {
	n := NormalizeBand(string(b))
	return n == BandHigh || n == BandLow
}

// Contains reports whether rating falls in the band.
func (b Band) Contains(rating float64) bool {
	if NormalizeBand(string(b)) == BandHigh {
		return rating >= HighRatingThreshold
	}
	return rating < HighRatingThreshold
}

const bandMessage = "Please choose either 'high' or 'low' for the review rating."

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ColorCategoryCriteria selects records by exact color and category.
type ColorCategoryCriteria struct {
	Color    string `json:"color"`
	Category string `json:"category"`
}

// Validate requires both fields.
func (c ColorCategoryCriteria) Validate() error {
	if blank(c.Color) || blank(c.Category) {
		return NewValidationError("color,category", "Please enter both color and category.")
	}
	return nil
}

// ItemPriceCriteria selects records whose item contains Item and whose amount is in range.
type ItemPriceCriteria struct {
	Item     string  `json:"item"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// Validate requires an item and non-negative prices.
func (c ItemPriceCriteria) Validate() error {
	if blank(c.Item) {
		return NewValidationError("item", "Please enter an item to search.")
	}
	if c.MinPrice < 0 || c.MaxPrice < 0 {
		return NewValidationError("price", "Price values must be positive.")
	}
	return nil
}

// Range returns the price bounds in ascending order.
func (c ItemPriceCriteria) Range() (float64, float64) {
	if c.MinPrice > c.MaxPrice {
		return c.MaxPrice, c.MinPrice
	}
	return c.MinPrice, c.MaxPrice
}

// GenderCategoryCriteria selects records by exact gender and category.
type GenderCategoryCriteria struct {
	Gender   string `json:"gender"`
	Category string `json:"category"`
}

// Validate requires both fields.
func (c GenderCategoryCriteria) Validate() error {
	if blank(c.Gender) || blank(c.Category) {
		return NewValidationError("gender,category", "Please enter both gender and category.")
	}
	return nil
}

// ItemSizeCriteria selects records by exact item name and size.
type ItemSizeCriteria struct {
	Item string `json:"item"`
	Size string `json:"size"`
}

// ItemRatingCriteria selects records whose item contains Item and whose rating is in Band.
type ItemRatingCriteria struct {
	Item string `json:"item"`
	Band Band   `json:"band"`
}

// Validate requires a known band.
func (c ItemRatingCriteria) Validate() error {
	if !c.Band.Valid() {
		return NewValidationError("rating", bandMessage)
	}
	return nil
}

// ItemAgeCriteria selects records whose item contains Item and whose age is in [MinAge, MaxAge].
type ItemAgeCriteria struct {
	Item   string `json:"item"`
	MinAge int    `json:"min_age"`
	MaxAge int    `json:"max_age"`
}

// CategoryCriteria selects records by exact category.
type CategoryCriteria struct {
	Category string `json:"category"`
}

// SeasonCriteria selects records whose season contains Season.
type SeasonCriteria struct {
	Season string `json:"season"`
}

// ColorNameCriteria selects records whose color contains Color and whose item contains Item.
type ColorNameCriteria struct {
	Color string `json:"color"`
	Item  string `json:"item"`
}

// FilterCriteria combines any subset of the single-purpose criteria.
// Unset fields do not constrain the match.
type FilterCriteria struct {
	Item     string   `json:"item,omitempty"`
	Color    string   `json:"color,omitempty"`
	Category string   `json:"category,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Size     string   `json:"size,omitempty"`
	Season   string   `json:"season,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinAge   *int     `json:"min_age,omitempty"`
	MaxAge   *int     `json:"max_age,omitempty"`
	Band     Band     `json:"band,omitempty"`
}

// IsZero reports whether no criterion is set.
func (c FilterCriteria) IsZero() bool {
	return blank(c.Item) && blank(c.Color) && blank(c.Category) && blank(c.Gender) &&
		blank(c.Size) && blank(c.Season) && c.MinPrice == nil && c.MaxPrice == nil &&
		c.MinAge == nil && c.MaxAge == nil && blank(string(c.Band))
}

// Validate requires at least one criterion, non-negative prices and a known band when set.
func (c FilterCriteria) Validate() error {
	if c.IsZero() {
		return NewValidationError("", "Please enter at least one criterion.")
	}
	if (c.MinPrice != nil && *c.MinPrice < 0) || (c.MaxPrice != nil && *c.MaxPrice < 0) {
		return NewValidationError("price", "Price values must be positive.")
	}
	if !blank(string(c.Band)) && !c.Band.Valid() {
		return NewValidationError("rating", bandMessage)
	}
	return nil
}

// Input is user-entered text. It also decodes from JSON numbers and booleans
// so API clients may send "min_price": 10 as well as "min_price": "10".
type Input string

// UnmarshalJSON accepts a JSON string, number, bool or null.
func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*in = Input(s)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case nil:
		*in = ""
	case float64, bool:
		*in = Input(strings.TrimSpace(string(data)))
	default:
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	return nil
}

// RawCriteria is untyped user input for any operation, as collected by a shell.
type RawCriteria struct {
	Item     Input `json:"item,omitempty"`
	Color    Input `json:"color,omitempty"`
	Category Input `json:"category,omitempty"`
	Gender   Input `json:"gender,omitempty"`
	Size     Input `json:"size,omitempty"`
	Season   Input `json:"season,omitempty"`
	MinPrice Input `json:"min_price,omitempty"`
	MaxPrice Input `json:"max_price,omitempty"`
	MinAge   Input `json:"min_age,omitempty"`
	MaxAge   Input `json:"max_age,omitempty"`
	Rating   Input `json:"rating,omitempty"`
}
