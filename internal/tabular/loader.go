package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"astob-order-generator/pkg/errors"
	"astob-order-generator/pkg/logger"
)

// Content signatures used for format detection. Upstream data sources are
// inconsistent about declaring the true format, so detection goes by
// leading bytes, never by filename extension alone.
var (
	zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}                         // xlsx container
	cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1} // legacy .xls container
)

// textEncoding pairs a decoder with its display name for attempt reporting.
type textEncoding struct {
	name    string
	decoder *encoding.Decoder
}

// csvEncodings is the fallback cascade for delimited text: UTF-8 first,
// then the two 8-bit code pages common for Romanian exports.
func csvEncodings() []textEncoding {
	return []textEncoding{
		{name: "utf-8", decoder: nil},
		{name: "windows-1250", decoder: charmap.Windows1250.NewDecoder()},
		{name: "iso-8859-2", decoder: charmap.ISO8859_2.NewDecoder()},
	}
}

// candidate delimiters for sniffing, in precedence order for count ties.
var candidateDelimiters = []rune{';', ',', '\t', '|'}

// Load ingests raw bytes into a Table. Format is detected by content
// signature: a ZIP container is parsed as an xlsx workbook, a legacy
// binary workbook is rejected with a clear attempt record, and anything
// else goes through a delimited-text cascade of encodings with automatic
// delimiter sniffing. Every attempt's failure is recorded; only after all
// attempts fail is an unreadable-table error returned carrying them.
func Load(data []byte, name string) (*Table, error) {
	log := logger.GetGlobalLogger().WithComponent("table_loader").WithField("input", name)

	if len(data) == 0 {
		return nil, errors.UnreadableTableError(name, []string{"input is empty"})
	}

	var attempts []string

	if bytes.HasPrefix(data, cfbSignature) {
		attempts = append(attempts, "xls: legacy binary workbook is not supported, convert to .xlsx")
		return nil, errors.UnreadableTableError(name, attempts)
	}

	if t, err := loadWorkbook(data, name); err == nil {
		log.WithFields(logger.Fields{"format": "xlsx", "rows": len(t.Rows)}).Debug("Loaded table")
		return t, nil
	} else if bytes.HasPrefix(data, zipSignature) {
		// A ZIP container that fails to parse as a workbook is not going
		// to parse as text either.
		attempts = append(attempts, fmt.Sprintf("xlsx: %v", err))
		return nil, errors.UnreadableTableError(name, attempts)
	} else {
		attempts = append(attempts, fmt.Sprintf("xlsx: %v", err))
	}

	for _, enc := range csvEncodings() {
		text, err := decodeText(data, enc)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("csv(%s): %v", enc.name, err))
			continue
		}
		t, err := parseDelimited(text, name)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("csv(%s): %v", enc.name, err))
			continue
		}
		log.WithFields(logger.Fields{"format": "csv", "encoding": enc.name, "rows": len(t.Rows)}).Debug("Loaded table")
		return t, nil
	}

	log.WithField("attempts", attempts).Error("All format attempts failed")
	return nil, errors.UnreadableTableError(name, attempts)
}

// loadWorkbook parses the bytes as an xlsx workbook and converts the active
// sheet into a Table. Cells styled with a date number format are surfaced
// as CellTime, plain numerics as CellNumber, everything else as text.
func loadWorkbook(data []byte, name string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(formatted) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := make([]string, len(formatted[0]))
	for i, h := range formatted[0] {
		headers[i] = strings.TrimSpace(h)
	}

	dateStyles := make(map[int]bool)
	t := &Table{Name: name, Headers: headers}
	for ri := 1; ri < len(formatted); ri++ {
		row := make([]Cell, len(formatted[ri]))
		for ci := range formatted[ri] {
			row[ci] = workbookCell(f, sheet, ri, ci, formatted, raw, dateStyles)
		}
		if isEmptyRow(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// workbookCell classifies one workbook cell using its formatted text, raw
// value and number format.
func workbookCell(f *excelize.File, sheet string, ri, ci int, formatted, raw [][]string, dateStyles map[int]bool) Cell {
	text := strings.TrimSpace(formatted[ri][ci])

	rawText := ""
	if ri < len(raw) && ci < len(raw[ri]) {
		rawText = strings.TrimSpace(raw[ri][ci])
	}
	if text == "" && rawText == "" {
		return EmptyCell()
	}

	if serial, err := strconv.ParseFloat(rawText, 64); err == nil {
		cellName, err := excelize.CoordinatesToCellName(ci+1, ri+1)
		if err == nil && isDateStyled(f, sheet, cellName, dateStyles) {
			if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return TimeCell(ts)
			}
		}
		return NumberCell(serial, text)
	}

	if text == "" {
		text = rawText
	}
	return StringCell(text)
}

// Built-in xlsx number format ids that render as dates or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true,
	21: true, 22: true, 45: true, 46: true, 47: true,
}

// isDateStyled reports whether the cell's number format renders the value
// as a date or time. Results are memoized per style id.
func isDateStyled(f *excelize.File, sheet, cellName string, cache map[int]bool) bool {
	styleID, err := f.GetCellStyle(sheet, cellName)
	if err != nil {
		return false
	}
	if v, ok := cache[styleID]; ok {
		return v
	}

	result := false
	if style, err := f.GetStyle(styleID); err == nil && style != nil {
		if builtinDateFormats[style.NumFmt] {
			result = true
		} else if style.CustomNumFmt != nil {
			fmtStr := strings.ToLower(*style.CustomNumFmt)
			result = strings.ContainsAny(fmtStr, "ymdhs") && !strings.Contains(fmtStr, "general")
		}
	}
	cache[styleID] = result
	return result
}

// decodeText decodes the bytes with the given encoding. UTF-8 input is
// validated rather than transformed; a UTF-8 BOM is stripped when present.
func decodeText(data []byte, enc textEncoding) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if enc.decoder == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 encoding")
		}
		return string(data), nil
	}
	decoded, err := enc.decoder.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// parseDelimited parses text as delimiter-separated values, sniffing the
// delimiter from the first non-empty line.
func parseDelimited(text, name string) (*Table, error) {
	delimiter, err := sniffDelimiter(text)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := readAll(reader)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no rows found")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	if len(headers) < 2 {
		return nil, fmt.Errorf("only one column detected with delimiter %q", string(delimiter))
	}

	t := &Table{Name: name, Headers: headers}
	for _, record := range records[1:] {
		row := make([]Cell, len(record))
		for i, field := range record {
			row[i] = classifyText(field)
		}
		if isEmptyRow(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func readAll(reader *csv.Reader) ([][]string, error) {
	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// sniffDelimiter picks the candidate delimiter occurring most often in the
// first non-empty line.
func sniffDelimiter(text string) (rune, error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		best := rune(0)
		bestCount := 0
		for _, d := range candidateDelimiters {
			if count := strings.Count(line, string(d)); count > bestCount {
				best = d
				bestCount = count
			}
		}
		if best == 0 {
			return 0, fmt.Errorf("no delimiter found in header line")
		}
		return best, nil
	}
	return 0, fmt.Errorf("input contains no text lines")
}
