package dataprocessing

import (
	"math"
	"strconv"
	"strings"
)

// Grid is a raw, headerless 2-D block of cell text decoded from a report file.
// Rows may be ragged.
type Grid [][]string

// Width returns the length of the longest row
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Strip removes rows and columns whose cells are all blank and pads the
// remaining rows to a uniform width.
func (g Grid) Strip() Grid {
	width := g.Width()
	keepCol := make([]bool, width)
	var rows [][]string

	for _, row := range g {
		blank := true
		for j, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				keepCol[j] = true
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}

	out := make(Grid, 0, len(rows))
	for _, row := range rows {
		stripped := make([]string, 0, width)
		for j := 0; j < width; j++ {
			if !keepCol[j] {
				continue
			}
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			stripped = append(stripped, cell)
		}
		out = append(out, stripped)
	}
	return out
}

// ParseNumber coerces formatted cell text to a float. Thousands separators,
// surrounding whitespace, currency symbols and accounting-style parentheses
// are accepted. Go literal underscores are not. Malformed input returns false
// instead of an error.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, '_') {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '$', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" || s == "-" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// rowText joins the non-blank cells of a row with single spaces
func rowText(row []string) string {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if c := strings.TrimSpace(cell); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// lastNumeric returns the rightmost cell of row that parses as a number
func lastNumeric(row []string) (float64, bool) {
	for j := len(row) - 1; j >= 0; j-- {
		if v, ok := ParseNumber(row[j]); ok {
			return v, true
		}
	}
	return 0, false
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}

func hasNumeric(cells []string) bool {
	for _, c := range cells {
		if _, ok := ParseNumber(c); ok {
			return true
		}
	}
	return false
}
