package pipeline

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "astob-order-generator/pkg/errors"
)

const keyCSV = `TID;Denumire Site;Nume;Nr. Inregistrare R.C.;CUI;Adresa
100;Magazin Centru;Acme SRL;J40/1/2020;RO1;Str. A 1
200;Magazin Gara;Beta SRL;J40/2/2020;RO2;Str. B 2
`

const astobCSV = `Nr. Terminal;Nume Operator;Suma Tranzactiei;Data Tranzactiei;Ora Tranzactiei
100;Incasare;10,50;05.01.2024;09:30:00
100;Incasare;20,00;03.01.2024;14:00:00
200;Incasare;5,25;06.01.2024;10:15:00
999;Incasare;7,00;04.01.2024;11:00:00
`

// buildTemplate assembles the order template used by the end-to-end tests.
func buildTemplate(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	cells := map[string]string{
		"A1": "{HEADER_DATE}",
		"A2": "Perioada: {COLECTARI}",
		"A3": "{NUME}",
		"B3": "{NR. INREGISTRARE R.C.}",
		"C3": "{CUI}",
		"D3": "{ADRESA}",
		"A5": "{DENUMIRE SITE}",
		"B5": "{TID}",
		"C5": "{DENUMIRE PRODUS}",
		"D5": "{VALOARE CU TVA}",
		"E5": "{DATA TRANZACTIEI}",
		"D8": "{TOTAL}",
	}
	for cell, token := range cells {
		if err := f.SetCellValue(sheet, cell, token); err != nil {
			t.Fatalf("Failed to build template: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to serialize template: %v", err)
	}
	return buf.Bytes()
}

func fixedOptions() Options {
	return Options{RunDate: time.Date(2024, 8, 5, 12, 0, 0, 0, time.UTC)}
}

func unpackArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Archive is not a valid zip: %v", err)
	}
	entries := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("Failed to read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = content
	}
	return entries
}

func openDocument(t *testing.T, data []byte) (*excelize.File, string) {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Entry is not a valid workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, f.GetSheetName(f.GetActiveSheetIndex())
}

func TestGenerateEndToEnd(t *testing.T) {
	out, err := Generate([]byte(astobCSV), []byte(keyCSV), buildTemplate(t), fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if out.RunID == "" {
		t.Error("Expected a run id")
	}
	if out.ArchiveName != "ordine.zip" {
		t.Errorf("Archive name = %q", out.ArchiveName)
	}
	if out.CollectionPeriod != "03.01.2024 - 06.01.2024" {
		t.Errorf("Collection period = %q", out.CollectionPeriod)
	}

	if len(out.Documents) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(out.Documents))
	}
	// Documents follow the group order: sorted by client name.
	if out.Documents[0].Name != "Ordin - Acme SRL.xlsx" {
		t.Errorf("First document = %q", out.Documents[0].Name)
	}
	if out.Documents[1].Name != "Ordin - Beta SRL.xlsx" {
		t.Errorf("Second document = %q", out.Documents[1].Name)
	}

	entries := unpackArchive(t, out.Archive)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 archive entries, got %d", len(entries))
	}

	// Acme: two transactions, total 30.50, sorted ascending by timestamp.
	acme, sheet := openDocument(t, entries["Ordin - Acme SRL.xlsx"])
	if got, _ := acme.GetCellValue(sheet, "A3"); got != "Acme SRL" {
		t.Errorf("Acme client cell = %q", got)
	}
	if got, _ := acme.GetCellValue(sheet, "A2"); got != "Perioada: 03.01.2024 - 06.01.2024" {
		t.Errorf("Acme period cell = %q", got)
	}
	if got, _ := acme.GetCellValue(sheet, "E6"); got != "2024-01-03 14:00:00" {
		t.Errorf("Acme first row timestamp = %q", got)
	}
	if got, _ := acme.GetCellValue(sheet, "E7"); got != "2024-01-05 09:30:00" {
		t.Errorf("Acme second row timestamp = %q", got)
	}
	// Total shifted one row down by the inserted data row.
	if got, _ := acme.GetCellValue(sheet, "D9"); got != "30.50" {
		t.Errorf("Acme total = %q, expected 30.50", got)
	}

	// Beta: one transaction, total on the template row.
	beta, sheet := openDocument(t, entries["Ordin - Beta SRL.xlsx"])
	if got, _ := beta.GetCellValue(sheet, "D8"); got != "5.25" {
		t.Errorf("Beta total = %q, expected 5.25", got)
	}
	if got, _ := beta.GetCellValue(sheet, "A6"); got != "Magazin Gara" {
		t.Errorf("Beta site cell = %q", got)
	}

	// The unknown terminal must not leak into any document.
	for name, data := range entries {
		doc, sheet := openDocument(t, data)
		rows, _ := doc.GetRows(sheet)
		for _, row := range rows {
			for _, text := range row {
				if text == "999" {
					t.Errorf("Unknown terminal leaked into %s", name)
				}
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	template := buildTemplate(t)

	first, err := Generate([]byte(astobCSV), []byte(keyCSV), template, fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate([]byte(astobCSV), []byte(keyCSV), template, fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(first.Archive, second.Archive) {
		t.Error("Expected byte-identical archives for identical inputs and run date")
	}
}

func TestGenerateClientNameFallsBackToSite(t *testing.T) {
	keyWithoutName := `TID;Denumire Site;Nr. Inregistrare R.C.;CUI;Adresa
100;Magazin Centru;J40/1/2020;RO1;Str. A 1
`
	astob := `Nr. Terminal;Nume Operator;Suma Tranzactiei;Data Tranzactiei;Ora Tranzactiei
100;Incasare;10,50;05.01.2024;09:30:00
`

	out, err := Generate([]byte(astob), []byte(keyWithoutName), buildTemplate(t), fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out.Documents) != 1 || out.Documents[0].Name != "Ordin - Magazin Centru.xlsx" {
		t.Fatalf("Expected site label used as client name, got %+v", out.Documents)
	}

	doc, sheet := openDocument(t, out.Documents[0].Data)
	if got, _ := doc.GetCellValue(sheet, "A3"); got != "Magazin Centru" {
		t.Errorf("Client cell = %q, expected the site label", got)
	}
}

func TestGenerateMissingTimeColumnDefaultsMidnight(t *testing.T) {
	astob := `Nr. Terminal;Nume Operator;Suma Tranzactiei;Data Tranzactiei
100;Incasare;10,50;05.01.2024
`

	out, err := Generate([]byte(astob), []byte(keyCSV), buildTemplate(t), fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	doc, sheet := openDocument(t, out.Documents[0].Data)
	if got, _ := doc.GetCellValue(sheet, "E6"); got != "2024-01-05 00:00:00" {
		t.Errorf("Timestamp = %q, expected midnight default", got)
	}
}

func TestGenerateErrorPropagation(t *testing.T) {
	template := buildTemplate(t)

	t.Run("unreadable key table", func(t *testing.T) {
		_, err := Generate([]byte(astobCSV), []byte{0x00, 0x01, 0x02}, template, fixedOptions())
		if !apperrors.HasCode(err, apperrors.CodeUnreadableTable) {
			t.Errorf("Expected unreadable_table, got %v", err)
		}
	})

	t.Run("missing key column", func(t *testing.T) {
		noTaxID := `TID;Denumire Site;Nume;Nr. Inregistrare R.C.;Adresa
100;Magazin Centru;Acme SRL;J40/1/2020;Str. A 1
`
		_, err := Generate([]byte(astobCSV), []byte(noTaxID), template, fixedOptions())
		if !apperrors.HasCode(err, apperrors.CodeMissingColumn) {
			t.Errorf("Expected missing_column, got %v", err)
		}
	})

	t.Run("no terminal matches", func(t *testing.T) {
		onlyUnknown := `Nr. Terminal;Nume Operator;Suma Tranzactiei;Data Tranzactiei;Ora Tranzactiei
999;Incasare;7,00;04.01.2024;11:00:00
`
		_, err := Generate([]byte(onlyUnknown), []byte(keyCSV), template, fixedOptions())
		if !apperrors.HasCode(err, apperrors.CodeNoTerminalMatches) {
			t.Errorf("Expected no_terminal_matches, got %v", err)
		}
	})

	t.Run("no valid timestamps", func(t *testing.T) {
		badDates := `Nr. Terminal;Nume Operator;Suma Tranzactiei;Data Tranzactiei;Ora Tranzactiei
100;Incasare;7,00;cndva;11:00:00
`
		_, err := Generate([]byte(badDates), []byte(keyCSV), template, fixedOptions())
		if !apperrors.HasCode(err, apperrors.CodeNoValidTimestamps) {
			t.Errorf("Expected no_valid_timestamps, got %v", err)
		}
	})

	t.Run("template missing tokens", func(t *testing.T) {
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(f.GetActiveSheetIndex())
		if err := f.SetCellValue(sheet, "A1", "no tokens here"); err != nil {
			t.Fatal(err)
		}
		buf, err := f.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}
		_, err = Generate([]byte(astobCSV), []byte(keyCSV), buf.Bytes(), fixedOptions())
		if !apperrors.HasCode(err, apperrors.CodeMissingToken) {
			t.Errorf("Expected missing_token, got %v", err)
		}
	})
}

func TestGenerateRunIDsDiffer(t *testing.T) {
	template := buildTemplate(t)
	first, err := Generate([]byte(astobCSV), []byte(keyCSV), template, fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate([]byte(astobCSV), []byte(keyCSV), template, fixedOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if first.RunID == second.RunID || !strings.Contains(first.RunID, "-") {
		t.Errorf("Expected distinct uuid run ids, got %q and %q", first.RunID, second.RunID)
	}
}
