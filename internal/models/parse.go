package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"astob-order-generator/internal/tabular"
)

// NormalizeTerminalID canonicalizes a terminal id cell: trimmed text, with
// the spurious ".0" suffix stripped that appears when an id passed through
// a float-typed column ("123.0" -> "123").
func NormalizeTerminalID(cell tabular.Cell) string {
	switch cell.Kind {
	case tabular.CellNumber:
		return strconv.FormatFloat(cell.Number, 'f', -1, 64)
	case tabular.CellString:
		id := strings.TrimSpace(cell.Text)
		return stripZeroFraction(id)
	default:
		return ""
	}
}

// stripZeroFraction removes a trailing ".0"/",00"-style fraction from an
// otherwise numeric string.
func stripZeroFraction(s string) string {
	for _, sep := range []string{".", ","} {
		idx := strings.LastIndex(s, sep)
		if idx <= 0 {
			continue
		}
		head, tail := s[:idx], s[idx+len(sep):]
		if tail == "" || strings.Trim(tail, "0") != "" {
			continue
		}
		if isDigits(head) {
			return head
		}
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseAmount converts a raw amount cell into a decimal value. Numeric
// cells pass through. For text, both "," and "." present means "." is a
// thousands separator and "," the decimal mark; a lone "," is the decimal
// mark. Unparsable values yield zero: a single bad amount must never block
// the batch.
func ParseAmount(cell tabular.Cell) decimal.Decimal {
	switch cell.Kind {
	case tabular.CellNumber:
		return decimal.NewFromFloat(cell.Number)
	case tabular.CellString:
		s := strings.ReplaceAll(strings.TrimSpace(cell.Text), " ", "")
		if strings.Contains(s, ",") && strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ",", ".")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Date layouts accepted for the transaction date, day before month per the
// source locale. Non-padded numeric layout fields also accept zero-padded
// input.
var dateLayouts = []string{
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

// ParseTimestamp combines a date cell and an optional time cell into one
// timestamp with second precision. An unparsable date yields ok=false and
// the caller must drop the record. When the date carries no time-of-day,
// the separate time component is combined in; a missing or unparsable time
// defaults to midnight.
func ParseTimestamp(dateCell, timeCell tabular.Cell) (time.Time, bool) {
	date, ok := parseDate(dateCell)
	if !ok {
		return time.Time{}, false
	}

	if date.Hour() != 0 || date.Minute() != 0 || date.Second() != 0 {
		return date, true
	}

	h, m, s := parseClock(timeCell)
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, time.UTC), true
}

func parseDate(cell tabular.Cell) (time.Time, bool) {
	switch cell.Kind {
	case tabular.CellTime:
		return cell.Time.Truncate(time.Second), true
	case tabular.CellString:
		s := strings.TrimSpace(cell.Text)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// parseClock extracts hour, minute and second from the time cell,
// defaulting to midnight. Numeric cells hold an xlsx day fraction.
func parseClock(cell tabular.Cell) (int, int, int) {
	switch cell.Kind {
	case tabular.CellTime:
		return cell.Time.Hour(), cell.Time.Minute(), cell.Time.Second()
	case tabular.CellString:
		s := strings.TrimSpace(cell.Text)
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Hour(), t.Minute(), t.Second()
			}
		}
		return 0, 0, 0
	case tabular.CellNumber:
		if cell.Number < 0 || cell.Number >= 1 {
			return 0, 0, 0
		}
		seconds := int(cell.Number*86400 + 0.5)
		return seconds / 3600, (seconds % 3600) / 60, seconds % 60
	default:
		return 0, 0, 0
	}
}
