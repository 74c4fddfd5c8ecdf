package query

import (
	"context"
	"testing"

	"github.com/hyperjump/kaimono/internal/dataset"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *dataset.Dataset {
	return dataset.New([]models.Record{
		{Item: "Jacket", Color: "Red", Category: "Outerwear", Gender: "Female", Size: "M", Season: "Winter", Amount: 120, Rating: 4.5, Age: 33},
		{Item: "Jeans", Color: "Blue", Category: "Clothing", Gender: "Male", Size: "32", Season: "Summer", Amount: 15, Rating: 3.0, Age: 25},
		{Item: "Jeans", Color: "Black", Category: "Clothing", Gender: "Female", Size: "30", Season: "Fall", Amount: 42.5, Rating: 4.0, Age: 41},
		{Item: "Jeans", Color: "blue", Category: "clothing", Gender: "Male", Size: "34", Season: "Spring", Amount: 99, Rating: 4.8, Age: 19},
		{Item: "T-shirt", Color: "Red", Category: "Clothing", Gender: "Male", Size: "M", Season: "Summer", Amount: 25, Rating: 3.9, Age: 22},
		{Item: "Shirt", Color: "White", Category: "Clothing", Gender: "Female", Size: "S", Season: "Spring", Amount: 42.5, Rating: 4.2, Age: 58},
		{Item: "Sneakers", Color: "Red", Category: "Footwear", Gender: "Female", Size: "8", Season: "Fall", Amount: 60, Rating: 2.5, Age: 30},
		{Item: "Sweatshirt", Color: "Dark Red", Category: "Clothing", Gender: "Male", Size: "L", Season: "Winter", Amount: 45, Rating: 5.0, Age: 47},
	}, dataset.WithCurrency("£"))
}

func newTestEngine() *Engine {
	return NewEngine(fixture())
}

func TestByColorAndCategory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	res, err := e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: "red", Category: "outerwear"})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Indexes())
	assert.Equal(t, []models.Column{models.ColumnItem, models.ColumnColor, models.ColumnCategory}, res.Columns)
	assert.Equal(t, []string{"Jacket", "Red", "Outerwear"}, res.Rows[0].Values)
	assert.Empty(t, res.Message)

	res, err = e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: "blue", Category: "outerwear"})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, "No items found for color 'blue' and category 'outerwear'.", res.Message)

	res, err = e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: " BLUE ", Category: "Clothing"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, res.Indexes())

	_, err = e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: "red"})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please enter both color and category.", ve.Message)
}

func TestByColorAndCategory_Membership(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	ds := e.Dataset()
	for i := 0; i < ds.Len(); i++ {
		r := ds.Record(i)
		res, err := e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: r.Color, Category: r.Category})
		require.NoError(t, err)
		assert.Contains(t, res.Indexes(), i, "record %d must match its own color and category", i)
		for _, row := range res.Rows {
			require.Less(t, row.Index, ds.Len())
			got := ds.Record(row.Index)
			assert.Equal(t, Project(got, res.Columns), row.Values, "row values must come from the dataset")
			assert.Equal(t, dataset.Fold(r.Color), dataset.Fold(got.Color))
			assert.Equal(t, dataset.Fold(r.Category), dataset.Fold(got.Category))
		}
	}
}

func TestByItemAndPriceRange(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	res, err := e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "jeans", MinPrice: 20, MaxPrice: 100})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, res.Indexes())
	assert.Equal(t, []string{"42.50", "99.00"}, res.ColumnValues(models.ColumnAmount))

	swapped, err := e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "jeans", MinPrice: 100, MaxPrice: 20})
	require.NoError(t, err)
	assert.Equal(t, res.Rows, swapped.Rows)

	res, err = e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "s", MinPrice: 40, MaxPrice: 50})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 7}, res.Indexes(), "equal amounts keep dataset order")

	res, err = e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "Jeans", MinPrice: 500, MaxPrice: 600})
	require.NoError(t, err)
	assert.Equal(t, "No items found for 'jeans' in the price range between £500.00 and £600.00.", res.Message)

	_, err = e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "", MinPrice: 1, MaxPrice: 2})
	assert.EqualError(t, err, "Please enter an item to search.")
	_, err = e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "jeans", MinPrice: -1, MaxPrice: 2})
	assert.EqualError(t, err, "Price values must be positive.")
}

func TestByItemAndPriceRange_SwapIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	for _, bounds := range [][2]float64{{50, 10}, {0, 200}, {42.5, 15}, {99, 99}} {
		a, err := e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "e", MinPrice: bounds[0], MaxPrice: bounds[1]})
		require.NoError(t, err)
		b, err := e.ByItemAndPriceRange(ctx, models.ItemPriceCriteria{Item: "e", MinPrice: bounds[1], MaxPrice: bounds[0]})
		require.NoError(t, err)
		assert.Equal(t, a.Rows, b.Rows, "bounds %v", bounds)
		assert.Equal(t, a.Message, b.Message)
	}
}

func TestGenderCategoryAndItemSize(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	res, err := e.ByGenderAndCategory(ctx, models.GenderCategoryCriteria{Gender: "FEMALE", Category: "clothing"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, res.Indexes())
	assert.Equal(t, []string{"Jeans", "Female", "Clothing"}, res.Rows[0].Values)

	_, err = e.ByGenderAndCategory(ctx, models.GenderCategoryCriteria{Category: "clothing"})
	assert.EqualError(t, err, "Please enter both gender and category.")

	res, err = e.ByItemAndSize(ctx, models.ItemSizeCriteria{Item: "jeans", Size: "32"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Indexes())

	res, err = e.ByItemAndSize(ctx, models.ItemSizeCriteria{Item: "jean", Size: "32"})
	require.NoError(t, err)
	assert.True(t, res.Empty(), "item name must match exactly")
	assert.Equal(t, "No items found for item 'jean' and size '32'.", res.Message)

	res, err = e.ByItemAndSize(ctx, models.ItemSizeCriteria{})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestByItemAndRating(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	high, err := e.ByItemAndRating(ctx, models.ItemRatingCriteria{Item: "shirt", Band: models.BandHigh})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 5}, high.Indexes())
	assertRatings(t, e, high, func(r float64) bool { return r >= 4 }, func(a, b float64) bool { return a >= b })

	low, err := e.ByItemAndRating(ctx, models.ItemRatingCriteria{Item: "shirt", Band: "Low"})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, low.Indexes())

	allLow, err := e.ByItemAndRating(ctx, models.ItemRatingCriteria{Band: models.BandLow})
	require.NoError(t, err)
	assertRatings(t, e, allLow, func(r float64) bool { return r < 4 }, func(a, b float64) bool { return a <= b })
	assert.Equal(t, []int{6, 1, 4}, allLow.Indexes())

	res, err := e.ByItemAndRating(ctx, models.ItemRatingCriteria{Item: "sneakers", Band: models.BandHigh})
	require.NoError(t, err)
	assert.Equal(t, "No items found for item 'sneakers' with 'high' review rating.", res.Message)

	res, err = e.ByItemAndRating(ctx, models.ItemRatingCriteria{Item: "shirt", Band: "medium"})
	assert.Nil(t, res)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please choose either 'high' or 'low' for the review rating.", ve.Message)
}

func assertRatings(t *testing.T, e *Engine, res *models.Result, inBand func(float64) bool, ordered func(a, b float64) bool) {
	t.Helper()
	for i, pos := range res.Indexes() {
		r := e.Dataset().Record(pos).Rating
		assert.True(t, inBand(r), "rating %v out of band", r)
		if i > 0 {
			prev := e.Dataset().Record(res.Rows[i-1].Index).Rating
			assert.True(t, ordered(prev, r), "ratings out of order: %v then %v", prev, r)
		}
	}
}

func TestByItemAndAgeRange(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	res, err := e.ByItemAndAgeRange(ctx, models.ItemAgeCriteria{Item: "JEANS", MinAge: 20, MaxAge: 41})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Indexes())
	assert.Equal(t, []string{"25", "41"}, res.ColumnValues(models.ColumnAge))

	res, err = e.ByItemAndAgeRange(ctx, models.ItemAgeCriteria{Item: "jeans", MinAge: 60, MaxAge: 70})
	require.NoError(t, err)
	assert.Equal(t, "No items found for item 'jeans' and age range '60-70'.", res.Message)
}

func TestByCategorySeasonColorName(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	res, err := e.ByCategory(ctx, models.CategoryCriteria{Category: "Footwear"})
	require.NoError(t, err)
	assert.Equal(t, []int{6}, res.Indexes())

	res, err = e.ByCategory(ctx, models.CategoryCriteria{Category: "toys"})
	require.NoError(t, err)
	assert.Equal(t, "No items found for category 'toys'.", res.Message)

	res, err = e.BySeason(ctx, models.SeasonCriteria{Season: "SPR"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, res.Indexes())
	assert.Equal(t, []models.Column{models.ColumnItem, models.ColumnSeason}, res.Columns)

	res, err = e.BySeason(ctx, models.SeasonCriteria{Season: "monsoon"})
	require.NoError(t, err)
	assert.Equal(t, "No items found for season 'monsoon'.", res.Message)

	res, err = e.ByColorAndName(ctx, models.ColorNameCriteria{Color: "red", Item: "shirt"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, res.Indexes())

	res, err = e.ByColorAndName(ctx, models.ColorNameCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total, "empty substrings match every record")

	res, err = e.ByColorAndName(ctx, models.ColorNameCriteria{Color: "green", Item: "hat"})
	require.NoError(t, err)
	assert.Equal(t, "No items found for color 'green' and item 'hat'.", res.Message)
}

func TestSubstringIsLiteral(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	res, err := e.BySeason(ctx, models.SeasonCriteria{Season: "."})
	require.NoError(t, err)
	assert.True(t, res.Empty(), "'.' must not act as a wildcard")

	res, err = e.ByColorAndName(ctx, models.ColorNameCriteria{Item: "t-sh"})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Indexes())
}

func TestByCriteria(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	f := func(v float64) *float64 { return &v }
	n := func(v int) *int { return &v }

	tests := []struct {
		name     string
		criteria models.FilterCriteria
		want     []int
		message  string
	}{
		{"male clothing under 50", models.FilterCriteria{Category: "clothing", Gender: "male", MaxPrice: f(50)}, []int{1, 4, 7}, ""},
		{"plus high band", models.FilterCriteria{Category: "clothing", Gender: "male", MaxPrice: f(50), Band: "high"}, []int{7}, ""},
		{"swapped ages", models.FilterCriteria{MinAge: n(30), MaxAge: n(20)}, []int{1, 4, 6}, ""},
		{"color substring", models.FilterCriteria{Color: "red", Season: "winter"}, []int{0, 7}, ""},
		{"min price only", models.FilterCriteria{MinPrice: f(99)}, []int{0, 3}, ""},
		{"no match", models.FilterCriteria{Item: "Hat", MinPrice: f(10)}, nil,
			"No items found for item 'hat', price from £10.00."},
		{"no match ranges", models.FilterCriteria{Size: "XL", MinPrice: f(5), MaxPrice: f(1), MaxAge: n(18)}, nil,
			"No items found for size 'xl', price range between £1.00 and £5.00, age up to 18."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.ByCriteria(ctx, tt.criteria)
			require.NoError(t, err)
			if tt.want == nil {
				assert.True(t, res.Empty())
				assert.Equal(t, tt.message, res.Message)
				return
			}
			assert.Equal(t, tt.want, res.Indexes())
			assert.Equal(t, models.AllColumns, res.Columns)
		})
	}

	_, err := e.ByCriteria(ctx, models.FilterCriteria{})
	assert.EqualError(t, err, "Please enter at least one criterion.")
}

// Re-filtering the projected rows on their own columns keeps the same records as
// filtering the full dataset.
func TestProjectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	ds := e.Dataset()

	res, err := e.ByColorAndCategory(ctx, models.ColorCategoryCriteria{Color: "red", Category: "clothing"})
	require.NoError(t, err)

	var refiltered []int
	colors := res.ColumnValues(models.ColumnColor)
	categories := res.ColumnValues(models.ColumnCategory)
	for i, row := range res.Rows {
		if dataset.Fold(colors[i]) == "red" && dataset.Fold(categories[i]) == "clothing" {
			refiltered = append(refiltered, row.Index)
		}
	}

	var direct []int
	for i := 0; i < ds.Len(); i++ {
		r := ds.Record(i)
		if dataset.Fold(r.Color) == "red" && dataset.Fold(r.Category) == "clothing" {
			direct = append(direct, i)
		}
	}
	assert.Equal(t, direct, refiltered)
	assert.Equal(t, direct, res.Indexes())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine().ByCategory(ctx, models.CategoryCriteria{Category: "clothing"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEveryOperationHasProjection(t *testing.T) {
	for _, op := range models.Operations {
		assert.NotEmpty(t, Projection(op), "operation %s", op)
	}
	assert.Len(t, Operations(), len(models.Operations))
}

func BenchmarkByItemAndPriceRange(b *testing.B) {
	items := []string{"Jeans", "Shirt", "Jacket", "Sneakers", "Hat"}
	records := make([]models.Record, 4000)
	for i := range records {
		records[i] = models.Record{
			Item: items[i%len(items)], Color: "Red", Category: "Clothing", Gender: "Male",
			Size: "M", Season: "Fall", Amount: float64(i % 100), Rating: float64(i%5) + 1, Age: 18 + i%50,
		}
	}
	e := NewEngine(dataset.New(records))
	ctx := context.Background()
	c := models.ItemPriceCriteria{Item: "jeans", MinPrice: 10, MaxPrice: 60}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ByItemAndPriceRange(ctx, c); err != nil {
			b.Fatal(err)
		}
	}
}
