package service

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/okian/bankrank/internal/adapters/repository"
)

var queryHeader = color.New(color.FgCyan, color.Bold)

// printResult writes the statement and its rows:
//
//	Executing query:
//	SELECT Name FROM Largest_banks LIMIT 5
//	('JPMorgan Chase',)
func printResult(w io.Writer, res repository.Result) error {
	if _, err := queryHeader.Fprintln(w, "Executing query:"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, res.Statement); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if _, err := fmt.Fprintln(w, FormatRow(row)); err != nil {
			return err
		}
	}
	return nil
}

// FormatRow renders row as a tuple literal, e.g. ('JPMorgan Chase', 432.92).
// A single value keeps the trailing comma: (151.99,).
func FormatRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return quote(x)
	case float64:
		return formatFloat(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// formatFloat prints the shortest round-trip form, always with a decimal
// point or exponent so floats never read as integers.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
