package query

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
)

var errNotFinite = errors.New("not a finite number")

// Descriptor documents one operation for shells that list what they can run.
type Descriptor struct {
	Operation   models.Operation `json:"operation"`
	Description string           `json:"description"`
	Inputs      []string         `json:"inputs"`
	Columns     []models.Column  `json:"columns"`
}

var descriptors = []Descriptor{
	{models.OpColorCategory, "exact color and category", []string{"color", "category"},
		[]models.Column{models.ColumnItem, models.ColumnColor, models.ColumnCategory}},
	{models.OpItemPrice, "item name contains text, amount in range, cheapest first", []string{"item", "min_price", "max_price"},
		[]models.Column{models.ColumnItem, models.ColumnAmount}},
	{models.OpGenderCategory, "exact gender and category", []string{"gender", "category"},
		[]models.Column{models.ColumnItem, models.ColumnGender, models.ColumnCategory}},
	{models.OpItemSize, "exact item name and size", []string{"item", "size"},
		[]models.Column{models.ColumnItem, models.ColumnSize}},
	{models.OpItemRating, "item name contains text, rating high (>= 4) or low (< 4)", []string{"item", "rating"},
		[]models.Column{models.ColumnItem, models.ColumnRating}},
	{models.OpItemAge, "item name contains text, customer age in range", []string{"item", "min_age", "max_age"},
		[]models.Column{models.ColumnItem, models.ColumnAge}},
	{models.OpCategory, "exact category", []string{"category"},
		[]models.Column{models.ColumnItem, models.ColumnCategory}},
	{models.OpSeason, "season contains text", []string{"season"},
		[]models.Column{models.ColumnItem, models.ColumnSeason}},
	{models.OpColorName, "color and item name contain text", []string{"color", "item"},
		[]models.Column{models.ColumnItem, models.ColumnColor}},
	{models.OpCriteria, "any combination of the criteria above", []string{
		"item", "color", "category", "gender", "size", "season", "min_price", "max_price", "min_age", "max_age", "rating"},
		models.AllColumns},
}

// Operations returns a descriptor for every operation.
func Operations() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Projection returns the fixed display columns of op.
func Projection(op models.Operation) []models.Column {
	for _, d := range descriptors {
		if d.Operation == op {
			return append([]models.Column(nil), d.Columns...)
		}
	}
	return nil
}

// Run converts raw user input into the criteria of op and runs it.
// Non-numeric prices or ages yield *models.ParseError; an unknown operation or
// missing criteria yield *models.ValidationError.
func (e *Engine) Run(ctx context.Context, op models.Operation, raw models.RawCriteria) (*models.Result, error) {
	switch op {
	case models.OpColorCategory:
		return e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: string(raw.Color), Category: string(raw.Category)})
	case models.OpItemPrice:
		lo, err := ParsePrice("min_price", raw.MinPrice)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		hi, err := ParsePrice("max_price", raw.MaxPrice)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		return e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: string(raw.Item), MinPrice: lo, MaxPrice: hi})
	case models.OpGenderCategory:
		return e.ByGenderAndCategory(ctx, models.GenderCategoryCriteria{Gender: string(raw.Gender), Category: string(raw.Category)})
	case models.OpItemSize:
		return e.ByItemAndSize(ctx, models.ItemSizeCriteria{Item: string(raw.Item), Size: string(raw.Size)})
	case models.OpItemRating:
		band, err := ParseBand(raw.Rating)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		return e.ByItemAndRating(ctx, models.ItemRatingCriteria{Item: string(raw.Item), Band: band})
	case models.OpItemAge:
		lo, err := ParseAge("min_age", raw.MinAge)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		hi, err := ParseAge("max_age", raw.MaxAge)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		return e.ByItemAndAgeRange(ctx, models.ItemAgeCriteria{Item: string(raw.Item), MinAge: lo, MaxAge: hi})
	case models.OpCategory:
		return e.ByCategory(ctx, models.CategoryCriteria{Category: string(raw.Category)})
	case models.OpSeason:
		return e.BySeason(ctx, models.SeasonCriteria{Season: string(raw.Season)})
	case models.OpColorName:
		return e.ByColorAndName(ctx, models.ColorNameCriteria{Color: string(raw.Color), Item: string(raw.Item)})
	case models.OpCriteria:
		c, err := FilterFromRaw(raw)
		if err != nil {
			return nil, e.rejected(op, err)
		}
		return e.ByCriteria(ctx, c)
	}
	return nil, models.NewValidationError("operation", "Unknown operation '"+string(op)+"'.")
}

// FilterFromRaw builds FilterCriteria from raw input; blank numeric fields stay unset.
func FilterFromRaw(raw models.RawCriteria) (models.FilterCriteria, error) {
	c := models.FilterCriteria{
		Item:     string(raw.Item),
		Color:    string(raw.Color),
		Category: string(raw.Category),
		Gender:   string(raw.Gender),
		Size:     string(raw.Size),
		Season:   string(raw.Season),
		Band:     models.NormalizeBand(string(raw.Rating)),
	}
	var err error
	if c.MinPrice, err = optionalPrice("min_price", raw.MinPrice); err != nil {
		return c, err
	}
	if c.MaxPrice, err = optionalPrice("max_price", raw.MaxPrice); err != nil {
		return c, err
	}
	if c.MinAge, err = optionalAge("min_age", raw.MinAge); err != nil {
		return c, err
	}
	if c.MaxAge, err = optionalAge("max_age", raw.MaxAge); err != nil {
		return c, err
	}
	return c, nil
}

// ParsePrice parses a decimal price. Blank input is an error.
func ParsePrice(field string, in models.Input) (float64, error) {
	s := strings.TrimSpace(string(in))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &models.ParseError{Field: field, Value: string(in), Err: unwrapNum(err)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &models.ParseError{Field: field, Value: string(in), Err: errNotFinite}
	}
	return v, nil
}

// ParseAge parses a whole number of years. Blank input is an error.
func ParseAge(field string, in models.Input) (int, error) {
	s := strings.TrimSpace(string(in))
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &models.ParseError{Field: field, Value: string(in), Err: unwrapNum(err)}
	}
	return v, nil
}

// ParseBand normalizes a rating band and rejects anything but high or low.
func ParseBand(in models.Input) (models.Band, error) {
	b := models.NormalizeBand(string(in))
	if !b.Valid() {
		return "", models.ItemRatingCriteria{Band: b}.Validate()
	}
	return b, nil
}

func optionalPrice(field string, in models.Input) (*float64, error) {
	if strings.TrimSpace(string(in)) == "" {
		return nil, nil
	}
	v, err := ParsePrice(field, in)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalAge(field string, in models.Input) (*int, error) {
	if strings.TrimSpace(string(in)) == "" {
		return nil, nil
	}
	v, err := ParseAge(field, in)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// unwrapNum drops strconv's function/input prefix; ParseError already names both.
func unwrapNum(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}
	return err
}
