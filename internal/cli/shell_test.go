package cli

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kaimono/internal/dataset"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/query"
)

func newTestShell(out *bytes.Buffer) *Shell {
	ds := dataset.New([]models.Record{
		{Item: "Jacket", Color: "Dark Red", Category: "Outerwear", Gender: "Female", Size: "M", Season: "Winter", Amount: 120, Rating: 4.5, Age: 33},
		{Item: "Jeans", Color: "Blue", Category: "Clothing", Gender: "Male", Size: "32", Season: "Summer", Amount: 15, Rating: 3.0, Age: 25},
		{Item: "Jeans", Color: "Black", Category: "Clothing", Gender: "Female", Size: "30", Season: "Fall", Amount: 42.5, Rating: 4.0, Age: 41},
	}, dataset.WithCurrency("£"))
	return NewShell(query.NewEngine(ds), out, OutputCompact, Options{})
}

func TestShell_Exec(t *testing.T) {
	var out bytes.Buffer
	sh := newTestShell(&out)
	ctx := context.Background()

	if err := sh.Exec(ctx, `item-price item=jeans min_price=20 max-price=100`); err != nil {
		t.Fatal(err)
	}
	if want := "Item Purchased\tPurchase Amount\nJeans\t42.50\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := sh.Exec(ctx, `color-name color="dark red"`); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Jacket\tDark Red") {
		t.Errorf("quoted value not handled:\n%s", out.String())
	}

	out.Reset()
	if err := sh.Exec(ctx, "category category=toys"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "No items found for category 'toys'." {
		t.Errorf("output = %q", out.String())
	}
}

func TestShell_Commands(t *testing.T) {
	var out bytes.Buffer
	sh := newTestShell(&out)
	ctx := context.Background()

	if err := sh.Exec(ctx, "output json"); err != nil {
		t.Fatal(err)
	}
	if sh.format != OutputJSON {
		t.Errorf("format = %s", sh.format)
	}
	if err := sh.Exec(ctx, "index"); err != nil || !sh.opts.Index {
		t.Errorf("index toggle: err=%v index=%v", err, sh.opts.Index)
	}

	out.Reset()
	if err := sh.Exec(ctx, "help"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "item-rating") || !strings.Contains(out.String(), "rating=") {
		t.Errorf("help should list operations and their keys:\n%s", out.String())
	}

	out.Reset()
	if err := sh.Exec(ctx, "info"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Records:  3") {
		t.Errorf("info output:\n%s", out.String())
	}

	if err := sh.Exec(ctx, "quit"); !errors.Is(err, ErrQuit) {
		t.Errorf("quit: got %v", err)
	}
	if err := sh.Exec(ctx, "   "); err != nil {
		t.Errorf("blank line: got %v", err)
	}
}

func TestShell_Errors(t *testing.T) {
	var out bytes.Buffer
	sh := newTestShell(&out)
	ctx := context.Background()
	tests := []struct {
		line    string
		wantErr string
	}{
		{"cheapest", "Unknown operation 'cheapest'."},
		{"season winter", `expected key=value, got "winter"`},
		{"season colour=red", `unknown criterion "colour"`},
		{`season season="fall`, "unterminated quote"},
		{"item-rating item=jeans rating=medium", "Please choose either 'high' or 'low' for the review rating."},
		{"output yaml", "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := sh.Exec(ctx, tt.line)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Exec(%q) error = %v, want %q", tt.line, err, tt.wantErr)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"season  season=fall", []string{"season", "season=fall"}},
		{`color-name color="dark red" item=""`, []string{"color-name", "color=dark red", "item="}},
		{"\tinfo\t", []string{"info"}},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.in)
		if err != nil {
			t.Fatalf("splitArgs(%q): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComplete(t *testing.T) {
	if got := complete("item-p"); !reflect.DeepEqual(got, []string{"item-price"}) {
		t.Errorf("complete(item-p) = %v", got)
	}
	if got := complete("item-price min_"); !reflect.DeepEqual(got, []string{"item-price min_price=", "item-price min_age="}) {
		t.Errorf("complete(item-price min_) = %v", got)
	}
	if got := complete("season "); len(got) != len(criteriaKeys) {
		t.Errorf("complete after space should offer every key, got %v", got)
	}
	if got := complete("season\t"); len(got) != len(criteriaKeys) || got[0] != "season\titem=" {
		t.Errorf("complete after tab should keep the separator, got %v", got)
	}
}
