package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/kaimono/internal/dataset"
	"github.com/hyperjump/kaimono/internal/models"
)

// ByColorAndCategory returns records whose color and category equal the criteria.
func (e *Engine) ByColorAndCategory(ctx context.Context, c models.ColorCategoryCriteria) (*models.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, e.rejected(models.OpColorCategory, err)
	}
	color, category := dataset.Fold(c.Color), dataset.Fold(c.Category)
	return e.execute(ctx, plan{
		op:      models.OpColorCategory,
		noMatch: fmt.Sprintf("No items found for color '%s' and category '%s'.", display(c.Color), display(c.Category)),
	}, func(i int) bool {
		return e.equals(i, models.ColumnColor, color) && e.equals(i, models.ColumnCategory, category)
	})
}

// ByItemAndPriceRange returns records whose item contains the criteria item and whose
// amount lies in the inclusive range, cheapest first. Reversed bounds are swapped.
func (e *Engine) ByItemAndPriceRange(ctx context.Context, c models.ItemPriceCriteria) (*models.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, e.rejected(models.OpItemPrice, err)
	}
	item := dataset.Fold(c.Item)
	lo, hi := c.Range()
	cur := e.ds.Currency()
	return e.execute(ctx, plan{
		op:   models.OpItemPrice,
		less: func(a, b models.Record) bool { return a.Amount < b.Amount },
		noMatch: fmt.Sprintf("No items found for '%s' in the price range between %s%.2f and %s%.2f.",
			display(c.Item), cur, lo, cur, hi),
	}, func(i int) bool {
		r := e.ds.Record(i)
		return r.Amount >= lo && r.Amount <= hi && e.contains(i, models.ColumnItem, item)
	})
}

// ByGenderAndCategory returns records whose gender and category equal the criteria.
func (e *Engine) ByGenderAndCategory(ctx context.Context, c models.GenderCategoryCriteria) (*models.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, e.rejected(models.OpGenderCategory, err)
	}
	gender, category := dataset.Fold(c.Gender), dataset.Fold(c.Category)
	return e.execute(ctx, plan{
		op:      models.OpGenderCategory,
		noMatch: fmt.Sprintf("No items found for gender '%s' and category '%s'.", display(c.Gender), display(c.Category)),
	}, func(i int) bool {
		return e.equals(i, models.ColumnGender, gender) && e.equals(i, models.ColumnCategory, category)
	})
}

// ByItemAndSize returns records whose item name and size equal the criteria.
// Empty criteria are not rejected; they simply match nothing.
func (e *Engine) ByItemAndSize(ctx context.Context, c models.ItemSizeCriteria) (*models.Result, error) {
	item, size := dataset.Fold(c.Item), dataset.Fold(c.Size)
	return e.execute(ctx, plan{
		op:      models.OpItemSize,
		noMatch: fmt.Sprintf("No items found for item '%s' and size '%s'.", display(c.Item), display(c.Size)),
	}, func(i int) bool {
		return e.equals(i, models.ColumnItem, item) && e.equals(i, models.ColumnSize, size)
	})
}

// ByItemAndRating returns records whose item contains the criteria item and whose rating
// falls in the band: high ratings best first, low ratings worst first.
func (e *Engine) ByItemAndRating(ctx context.Context, c models.ItemRatingCriteria) (*models.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, e.rejected(models.OpItemRating, err)
	}
	item := dataset.Fold(c.Item)
	band := models.NormalizeBand(string(c.Band))
	less := func(a, b models.Record) bool { return a.Rating < b.Rating }
	if band == models.BandHigh {
		less = func(a, b models.Record) bool { return a.Rating > b.Rating }
	}
	return e.execute(ctx, plan{
		op:      models.OpItemRating,
		less:    less,
		noMatch: fmt.Sprintf("No items found for item '%s' with '%s' review rating.", display(c.Item), band),
	}, func(i int) bool {
		return band.Contains(e.ds.Record(i).Rating) && e.contains(i, models.ColumnItem, item)
	})
}

// ByItemAndAgeRange returns records whose item contains the criteria item and whose
// customer age lies in the inclusive range.
func (e *Engine) ByItemAndAgeRange(ctx context.Context, c models.ItemAgeCriteria) (*models.Result, error) {
	item := dataset.Fold(c.Item)
	return e.execute(ctx, plan{
		op: models.OpItemAge,
		noMatch: fmt.Sprintf("No items found for item '%s' and age range '%d-%d'.",
			display(c.Item), c.MinAge, c.MaxAge),
	}, func(i int) bool {
		age := e.ds.Record(i).Age
		return age >= c.MinAge && age <= c.MaxAge && e.contains(i, models.ColumnItem, item)
	})
}

// ByCategory returns records whose category equals the criteria.
func (e *Engine) ByCategory(ctx context.Context, c models.CategoryCriteria) (*models.Result, error) {
	category := dataset.Fold(c.Category)
	return e.execute(ctx, plan{
		op:      models.OpCategory,
		noMatch: fmt.Sprintf("No items found for category '%s'.", display(c.Category)),
	}, func(i int) bool {
		return e.equals(i, models.ColumnCategory, category)
	})
}

// BySeason returns records whose season contains the criteria text.
func (e *Engine) BySeason(ctx context.Context, c models.SeasonCriteria) (*models.Result, error) {
	season := dataset.Fold(c.Season)
	return e.execute(ctx, plan{
		op:      models.OpSeason,
		noMatch: fmt.Sprintf("No items found for season '%s'.", display(c.Season)),
	}, func(i int) bool {
		return e.contains(i, models.ColumnSeason, season)
	})
}

// ByColorAndName returns records whose color and item name contain the criteria text.
func (e *Engine) ByColorAndName(ctx context.Context, c models.ColorNameCriteria) (*models.Result, error) {
	color, item := dataset.Fold(c.Color), dataset.Fold(c.Item)
	return e.execute(ctx, plan{
		op:      models.OpColorName,
		noMatch: fmt.Sprintf("No items found for color '%s' and item '%s'.", display(c.Color), display(c.Item)),
	}, func(i int) bool {
		return e.contains(i, models.ColumnColor, color) && e.contains(i, models.ColumnItem, item)
	})
}

// ByCriteria returns records matching every criterion that is set, in dataset order.
// Item, color and season match as substrings; category, gender and size exactly.
// Reversed price or age bounds are swapped.
func (e *Engine) ByCriteria(ctx context.Context, c models.FilterCriteria) (*models.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, e.rejected(models.OpCriteria, err)
	}
	var (
		preds []func(i int) bool
		parts []string
	)
	text := func(label, value string, col models.Column, exact bool) {
		if strings.TrimSpace(value) == "" {
			return
		}
		folded := dataset.Fold(value)
		if exact {
			preds = append(preds, func(i int) bool { return e.equals(i, col, folded) })
		} else {
			preds = append(preds, func(i int) bool { return e.contains(i, col, folded) })
		}
		parts = append(parts, fmt.Sprintf("%s '%s'", label, display(value)))
	}
	text("item", c.Item, models.ColumnItem, false)
	text("color", c.Color, models.ColumnColor, false)
	text("category", c.Category, models.ColumnCategory, true)
	text("gender", c.Gender, models.ColumnGender, true)
	text("size", c.Size, models.ColumnSize, true)
	text("season", c.Season, models.ColumnSeason, false)

	if c.MinPrice != nil || c.MaxPrice != nil {
		lo, hi := floatBounds(c.MinPrice, c.MaxPrice)
		preds = append(preds, func(i int) bool {
			a := e.ds.Record(i).Amount
			return a >= lo && a <= hi
		})
		parts = append(parts, describePrice(e.ds.Currency(), c.MinPrice, c.MaxPrice))
	}
	if c.MinAge != nil || c.MaxAge != nil {
		lo, hi := intBounds(c.MinAge, c.MaxAge)
		preds = append(preds, func(i int) bool {
			a := e.ds.Record(i).Age
			return a >= lo && a <= hi
		})
		parts = append(parts, describeAge(c.MinAge, c.MaxAge))
	}
	if strings.TrimSpace(string(c.Band)) != "" {
		band := models.NormalizeBand(string(c.Band))
		preds = append(preds, func(i int) bool { return band.Contains(e.ds.Record(i).Rating) })
		parts = append(parts, fmt.Sprintf("'%s' review rating", band))
	}

	return e.execute(ctx, plan{
		op:      models.OpCriteria,
		noMatch: "No items found for " + strings.Join(parts, ", ") + ".",
	}, func(i int) bool {
		for _, p := range preds {
			if !p(i) {
				return false
			}
		}
		return true
	})
}

func floatBounds(lower, upper *float64) (float64, float64) {
	switch {
	case lower != nil && upper != nil:
		if *lower > *upper {
			return *upper, *lower
		}
		return *lower, *upper
	case lower != nil:
		return *lower, math.MaxFloat64
	default:
		return 0, *upper
	}
}

func intBounds(lower, upper *int) (int, int) {
	switch {
	case lower != nil && upper != nil:
		if *lower > *upper {
			return *upper, *lower
		}
		return *lower, *upper
	case lower != nil:
		return *lower, math.MaxInt
	default:
		return math.MinInt, *upper
	}
}

func describePrice(cur string, lower, upper *float64) string {
	switch {
	case lower != nil && upper != nil:
		lo, hi := floatBounds(lower, upper)
		return fmt.Sprintf("price range between %s%.2f and %s%.2f", cur, lo, cur, hi)
	case lower != nil:
		return fmt.Sprintf("price from %s%.2f", cur, *lower)
	default:
		return fmt.Sprintf("price up to %s%.2f", cur, *upper)
	}
}

func describeAge(lower, upper *int) string {
	switch {
	case lower != nil && upper != nil:
		lo, hi := intBounds(lower, upper)
		return fmt.Sprintf("age range '%d-%d'", lo, hi)
	case lower != nil:
		return fmt.Sprintf("age from %d", *lower)
	default:
		return fmt.Sprintf("age up to %d", *upper)
	}
}
