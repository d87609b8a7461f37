package tabular

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	apperrors "astob-order-generator/pkg/errors"
)

func buildWorkbook(t *testing.T, headers []string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for ci, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(ci+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("SetCellValue header failed: %v", err)
		}
	}
	for ri, row := range rows {
		for ci, v := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("SetCellValue failed: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf.Bytes()
}

func TestLoadWorkbook(t *testing.T) {
	when := time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC)
	data := buildWorkbook(t,
		[]string{"Nr. Terminal", "Suma Tranzactiei", "Data Tranzactiei"},
		[][]interface{}{
			{"100", 30.5, when},
			{"200", "50,25", "03.01.2024"},
		},
	)

	table, err := Load(data, "astob")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(table.Headers) != 3 {
		t.Fatalf("Expected 3 headers, got %d", len(table.Headers))
	}
	if table.Headers[0] != "Nr. Terminal" {
		t.Errorf("Unexpected header: %q", table.Headers[0])
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}

	if got := table.Cell(0, 0); got.Kind != CellNumber || got.Number != 100 {
		t.Errorf("Expected numeric terminal id cell, got kind=%d %v", got.Kind, got)
	}
	if got := table.Cell(0, 1); got.Kind != CellNumber || got.Number != 30.5 {
		t.Errorf("Expected amount 30.5, got kind=%d %v", got.Kind, got)
	}
	if got := table.Cell(0, 2); got.Kind != CellTime {
		t.Errorf("Expected date-styled cell to be CellTime, got kind=%d %q", got.Kind, got.String())
	} else if !got.Time.Equal(when) {
		t.Errorf("Expected %v, got %v", when, got.Time)
	}
	if got := table.Cell(1, 1); got.Kind != CellString || got.Text != "50,25" {
		t.Errorf("Expected localized amount as string, got kind=%d %q", got.Kind, got.Text)
	}
}

func TestLoadCSVSemicolon(t *testing.T) {
	csvText := "TID;Nume;Suma\n100;Acme SRL;30,50\n200;Beta SRL;20\n"

	table, err := Load([]byte(csvText), "key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Headers) != 3 || table.Headers[1] != "Nume" {
		t.Fatalf("Unexpected headers: %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if got := table.Cell(0, 1); got.Kind != CellString || got.Text != "Acme SRL" {
		t.Errorf("Unexpected cell: kind=%d %q", got.Kind, got.Text)
	}
	if got := table.Cell(1, 2); got.Kind != CellNumber || got.Number != 20 {
		t.Errorf("Expected numeric cell, got kind=%d %v", got.Kind, got)
	}
}

func TestLoadCSVTabDelimited(t *testing.T) {
	csvText := "TID\tNume\n100\tAcme\n"

	table, err := Load([]byte(csvText), "key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Headers) != 2 {
		t.Fatalf("Expected tab sniffing to yield 2 columns, got %v", table.Headers)
	}
}

func TestLoadCSVWindows1250(t *testing.T) {
	utf8Text := "TID;Adresă\n100;Șoseaua Veche 5\n"
	encoded, err := charmap.Windows1250.NewEncoder().Bytes([]byte(utf8Text))
	if err != nil {
		t.Fatalf("Encoding test fixture failed: %v", err)
	}

	table, err := Load(encoded, "key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Headers[1] != "Adresă" {
		t.Errorf("Expected decoded diacritic header, got %q", table.Headers[1])
	}
	if got := table.Cell(0, 1); got.Text != "Șoseaua Veche 5" {
		t.Errorf("Expected decoded cell text, got %q", got.Text)
	}
}

func TestLoadCSVWithBOM(t *testing.T) {
	csvText := "\xEF\xBB\xBFTID,Nume\n100,Acme\n"

	table, err := Load([]byte(csvText), "key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Headers[0] != "TID" {
		t.Errorf("Expected BOM to be stripped, got header %q", table.Headers[0])
	}
}

func TestLoadLegacyBinaryRejected(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, bytes.Repeat([]byte{0}, 64)...)

	_, err := Load(data, "astob")
	if err == nil {
		t.Fatal("Expected error for legacy binary workbook")
	}
	if !strings.Contains(err.Error(), "legacy binary") {
		t.Errorf("Expected legacy binary attempt in error, got: %v", err)
	}
}

func TestLoadUnreadableCollectsAttempts(t *testing.T) {
	// Binary junk with no recognizable signature and no delimiter.
	data := []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0x03}

	_, err := Load(data, "astob")
	if err == nil {
		t.Fatal("Expected UnreadableTableError")
	}

	genErr, ok := apperrors.AsGeneratorError(err)
	if !ok {
		t.Fatal("Expected a GeneratorError")
	}
	if genErr.Code != apperrors.CodeUnreadableTable {
		t.Errorf("Expected code %s, got %s", apperrors.CodeUnreadableTable, genErr.Code)
	}
	attempts, ok := genErr.Context["attempts"].([]string)
	if !ok || len(attempts) < 2 {
		t.Errorf("Expected several recorded attempts, got %v", genErr.Context["attempts"])
	}
}

func TestLoadEmptyInput(t *testing.T) {
	if _, err := Load(nil, "astob"); err == nil {
		t.Fatal("Expected error for empty input")
	}
}

func TestTableCellBounds(t *testing.T) {
	table := &Table{
		Headers: []string{"A", "B"},
		Rows:    [][]Cell{{StringCell("x")}},
	}

	if got := table.Cell(0, 1); !got.IsEmpty() {
		t.Error("Expected empty cell for ragged row access")
	}
	if got := table.Cell(5, 0); !got.IsEmpty() {
		t.Error("Expected empty cell for out-of-range row")
	}
	if idx := table.ColumnIndex("B"); idx != 1 {
		t.Errorf("Expected column index 1, got %d", idx)
	}
	if idx := table.ColumnIndex("missing"); idx != -1 {
		t.Errorf("Expected -1 for missing column, got %d", idx)
	}
}
