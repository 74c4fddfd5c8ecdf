package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/query"
	"github.com/peterh/liner"
)

// ErrQuit is returned by Shell.Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

// criteriaKeys are the names accepted in key=value shell arguments.
var criteriaKeys = []string{
	"item", "color", "category", "gender", "size", "season",
	"min_price", "max_price", "min_age", "max_age", "rating",
}

// Shell is an interactive prompt that runs one operation per line:
//
//	item-price item=jeans min_price=20 max_price=100
//	color-name color="dark red"
type Shell struct {
	engine  *query.Engine
	out     io.Writer
	format  OutputFormat
	opts    Options
	history string
}

// NewShell creates a shell that prints results to out.
func NewShell(engine *query.Engine, out io.Writer, format OutputFormat, opts Options) *Shell {
	s := &Shell{engine: engine, out: out, format: format, opts: opts}
	if home, err := os.UserHomeDir(); err == nil {
		s.history = filepath.Join(home, ".kaimono_history")
	}
	return s
}

// Run reads lines from the terminal until EOF, Ctrl-C or "quit".
func (s *Shell) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)
	s.loadHistory(line)
	defer s.saveHistory(line)

	fmt.Fprintf(s.out, "%d records loaded. Type \"help\" for commands.\n", s.engine.Dataset().Len())
	for {
		input, err := line.Prompt("kaimono> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		if err := s.Exec(ctx, input); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

// Exec runs one shell line. User mistakes are returned as errors and leave the
// shell usable.
func (s *Shell) Exec(ctx context.Context, input string) error {
	args, err := splitArgs(input)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "quit", "exit", "q":
		return ErrQuit
	case "help", "?":
		s.printHelp()
		return nil
	case "info":
		return WriteDatasetInfo(s.out, s.engine.Dataset().Info(), OutputText)
	case "output":
		if len(args) != 2 {
			return errors.New("usage: output text|compact|json")
		}
		f, err := ParseOutputFormat(args[1])
		if err != nil {
			return err
		}
		s.format = f
		return nil
	case "index":
		s.opts.Index = !s.opts.Index
		fmt.Fprintf(s.out, "index column %s\n", onOff(s.opts.Index))
		return nil
	}

	op, err := models.ParseOperation(args[0])
	if err != nil {
		return err
	}
	raw, err := ParseCriteria(args[1:])
	if err != nil {
		return err
	}
	result, err := s.engine.Run(ctx, op, raw)
	if err != nil {
		return err
	}
	return WriteResult(s.out, result, s.format, s.opts)
}

// ParseCriteria reads key=value arguments into raw criteria. Keys may use
// dashes or underscores.
func ParseCriteria(args []string) (models.RawCriteria, error) {
	var raw models.RawCriteria
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return raw, fmt.Errorf("expected key=value, got %q", arg)
		}
		v := models.Input(value)
		switch strings.ReplaceAll(strings.ToLower(key), "-", "_") {
		case "item":
			raw.Item = v
		case "color":
			raw.Color = v
		case "category":
			raw.Category = v
		case "gender":
			raw.Gender = v
		case "size":
			raw.Size = v
		case "season":
			raw.Season = v
		case "min_price":
			raw.MinPrice = v
		case "max_price":
			raw.MaxPrice = v
		case "min_age":
			raw.MinAge = v
		case "max_age":
			raw.MaxAge = v
		case "rating":
			raw.Rating = v
		default:
			return raw, fmt.Errorf("unknown criterion %q", key)
		}
	}
	return raw, nil
}

// splitArgs splits a line on spaces, keeping double-quoted runs together.
func splitArgs(input string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range input {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case (r == ' ' || r == '\t') && !quoted:
			if pending {
				args = append(args, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if pending {
		args = append(args, cur.String())
	}
	return args, nil
}

func complete(line string) []string {
	var out []string
	fields := strings.Fields(line)
	r, _ := utf8.DecodeLastRuneInString(line)
	trailingSpace := unicode.IsSpace(r)
	if len(fields) == 0 || (len(fields) == 1 && !trailingSpace) {
		candidates := []string{"help", "info", "output", "index", "quit"}
		for _, op := range models.Operations {
			candidates = append(candidates, string(op))
		}
		for _, c := range candidates {
			if strings.HasPrefix(c, strings.TrimSpace(line)) {
				out = append(out, c)
			}
		}
		sort.Strings(out)
		return out
	}
	last := fields[len(fields)-1]
	prefix := line[:len(line)-len(last)]
	if trailingSpace {
		last, prefix = "", line
	}
	for _, k := range criteriaKeys {
		if strings.HasPrefix(k+"=", last) {
			out = append(out, prefix+k+"=")
		}
	}
	return out
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, d := range query.Operations() {
		keys := make([]string, len(d.Inputs))
		for i, in := range d.Inputs {
			keys[i] = in + "="
		}
		fmt.Fprintf(s.out, "  %-16s %s\n", d.Operation, strings.Join(keys, " "))
	}
	fmt.Fprintln(s.out, `  info             dataset summary
  output FORMAT    text, compact or json
  index            toggle the row index column
  quit             leave the shell`)
}

func (s *Shell) loadHistory(line *liner.State) {
	if s.history == "" {
		return
	}
	if f, err := os.Open(s.history); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
}

func (s *Shell) saveHistory(line *liner.State) {
	if s.history == "" {
		return
	}
	if f, err := os.Create(s.history); err == nil {
		_, _ = line.WriteHistory(f)
		_ = f.Close()
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
